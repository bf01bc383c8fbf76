package decryption

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"go.dedis.ch/kyber/v3/share"

	"dossier/internal/crypto"
	"dossier/internal/domain"
	"dossier/internal/threshold"
	"dossier/internal/util/memzero"
)

const (
	// DefaultTimeout bounds how long a session waits for a quorum.
	DefaultTimeout = 5 * time.Minute
	DefaultWorkers = 4
)

// Metrics observes session outcomes.
type Metrics interface {
	SessionStarted()
	SessionFinished(outcome string, elapsed time.Duration)
	ShareAccepted()
	ShareRejected(reason string)
}

type noopMetrics struct{}

func (noopMetrics) SessionStarted()                       {}
func (noopMetrics) SessionFinished(string, time.Duration) {}
func (noopMetrics) ShareAccepted()                        {}
func (noopMetrics) ShareRejected(string)                  {}

// Session outcomes reported to Metrics.
const (
	OutcomeSuccess            = "success"
	OutcomeInsufficient       = "insufficient_shares"
	OutcomeCombinationFailure = "combination_failure"
	OutcomeCancelled          = "cancelled"
	OutcomeMalformed          = "malformed_capsule"
	OutcomeUnavailable        = "ritual_unavailable"
	OutcomeInternal           = "internal_error"
)

// Service is the threshold decryption coordinator.
type Service struct {
	rituals  domain.RitualSource
	coord    domain.Coordinator
	tracker  domain.LifecycleTracker
	capsules domain.CapsuleStore
	timeout  time.Duration
	workers  int
	metrics  Metrics
	hook     func(*Session)
	log      zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds the wait for a quorum.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithWorkers sets how many replies are verified in parallel.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMetrics sets the metrics observer.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSessionHook registers f to be called with every session after it
// ended and its material was wiped.
func WithSessionHook(f func(*Session)) Option {
	return func(s *Service) { s.hook = f }
}

// WithRelease enables Release by giving the service the lifecycle tracker
// that gates it and the store that holds capsules.
func WithRelease(tracker domain.LifecycleTracker, capsules domain.CapsuleStore) Option {
	return func(s *Service) {
		s.tracker = tracker
		s.capsules = capsules
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// New returns a decryption coordinator.
func New(rituals domain.RitualSource, coord domain.Coordinator, opts ...Option) *Service {
	s := &Service{
		rituals: rituals,
		coord:   coord,
		timeout: DefaultTimeout,
		workers: DefaultWorkers,
		metrics: noopMetrics{},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "decryption").Logger()
	return s
}

// Release decrypts the capsule of d if the lifecycle tracker reports it as
// releasable, and fails with domain.ErrNotReleasable otherwise.
func (s *Service) Release(ctx context.Context, d domain.Dossier) ([]byte, error) {
	if s.tracker == nil || s.capsules == nil {
		return nil, errors.New("decryption: release is not configured")
	}
	ev, err := s.tracker.Evaluate(ctx, d)
	if err != nil {
		return nil, err
	}
	if ev.Status != domain.StatusReleasable {
		return nil, fmt.Errorf("%w: status %s", domain.ErrNotReleasable, ev.Status)
	}
	capsule, err := s.capsules.Get(d.Capsule)
	if err != nil {
		return nil, err
	}
	return s.Decrypt(ctx, capsule)
}

// verified is the outcome of checking one reply.
type verified struct {
	participant domain.ParticipantID
	share       *share.PubShare
	reason      string
	err         error
}

// Decrypt runs one share collection session for capsule.
//
// Steps:
//  1. Fetch the ritual's participants and threshold.
//  2. Create an ephemeral request key and one encrypted request per
//     participant, and submit them as one batch.
//  3. Verify replies in parallel as they arrive and accumulate valid shares.
//  4. At t shares, combine. If the capsule does not open, keep every share
//     and accumulate; each later share is tried with every t-1 of the ones
//     already held.
//  5. Wipe all session material on every exit path.
func (s *Service) Decrypt(ctx context.Context, capsule []byte) (plaintext []byte, err error) {
	start := time.Now()
	s.metrics.SessionStarted()
	outcome := OutcomeSuccess
	defer func() { s.metrics.SessionFinished(outcome, time.Since(start)) }()

	c, err := threshold.ParseCapsule(capsule)
	if err != nil {
		outcome = OutcomeMalformed
		return nil, err
	}

	ritual, err := s.rituals.Ritual(ctx, c.RitualID)
	if err != nil {
		outcome = OutcomeUnavailable
		return nil, fmt.Errorf("%w: ritual %s: %w", domain.ErrKeySourceUnavailable, c.RitualID, err)
	}
	if ritual.Threshold < 1 || ritual.Threshold > ritual.Size() {
		outcome = OutcomeUnavailable
		return nil, fmt.Errorf("%w: ritual %s has threshold %d of %d",
			domain.ErrKeySourceUnavailable, c.RitualID, ritual.Threshold, ritual.Size())
	}

	sess := newSession(ritual, c)
	log := s.log.With().
		Str("session_id", sess.ID().String()).
		Str("ritual_id", c.RitualID.String()).
		Int("threshold", ritual.Threshold).
		Int("participants", ritual.Size()).
		Logger()

	results := make(chan verified, ritual.Size())
	wp := workerpool.New(s.workers)
	defer func() {
		wp.StopWait()
		close(results)
		for v := range results {
			if v.share != nil {
				sess.track(v.share)
			}
		}
		sess.wipe()
		if s.hook != nil {
			s.hook(sess)
		}
	}()

	sessCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	batch, err := s.prepare(sess)
	if err != nil {
		outcome = OutcomeInternal
		return nil, err
	}
	log.Info().Msg("session started")

	replies, err := s.coord.Submit(sessCtx, batch)
	if err != nil {
		if ctx.Err() != nil {
			outcome = OutcomeCancelled
			return nil, fmt.Errorf("decryption cancelled: %w", ctx.Err())
		}
		outcome = OutcomeInsufficient
		return nil, fmt.Errorf("%w: submit batch: %w", domain.ErrInsufficientShares, err)
	}

	var (
		shares     []*share.PubShare
		seen       = make(map[domain.ParticipantID]bool, ritual.Size())
		pending    int
		combineErr error
		errs       *multierror.Error
	)

	for replies != nil || pending > 0 {
		select {
		case r, ok := <-replies:
			if !ok {
				replies = nil
				continue
			}
			if _, member := sess.members[r.Participant]; !member || seen[r.Participant] {
				log.Warn().Str("participant", r.Participant.String()).Msg("unexpected reply dropped")
				continue
			}
			seen[r.Participant] = true
			pending++
			wp.Submit(func() { results <- s.verify(sess, r) })

		case v := <-results:
			pending--
			if v.err != nil {
				sess.rejected.Inc()
				s.metrics.ShareRejected(v.reason)
				errs = multierror.Append(errs, fmt.Errorf("participant %s: %w", v.participant, v.err))
				log.Warn().Err(v.err).Str("participant", v.participant.String()).Str("reason", v.reason).Msg("reply dropped")
				continue
			}
			sess.track(v.share)
			sess.accepted.Inc()
			s.metrics.ShareAccepted()
			shares = append(shares, v.share)
			if len(shares) < ritual.Threshold {
				continue
			}

			// Subsets without the newest share were already tried.
			pt, tried, err := combineWithNewest(c, shares, ritual.Threshold, ritual.Size())
			sess.failed.Add(int32(tried))
			if err == nil {
				cancel()
				log.Info().Int("accepted", sess.Accepted()).Dur("elapsed", time.Since(start)).Msg("session succeeded")
				return pt, nil
			}
			combineErr = err
			log.Warn().Err(err).
				Str("participant", v.participant.String()).
				Int("failed_combinations", sess.FailedCombinations()).
				Msg("no subset including the latest share combines")

		case <-sessCtx.Done():
			if ctx.Err() != nil {
				outcome = OutcomeCancelled
				log.Info().Msg("session cancelled")
				return nil, fmt.Errorf("decryption cancelled: %w", ctx.Err())
			}
			outcome = OutcomeInsufficient
			log.Warn().Int("accepted", len(shares)).Msg("session timed out")
			return nil, insufficient(len(shares), ritual.Threshold, "timed out", errs)
		}
	}

	if combineErr != nil {
		outcome = OutcomeCombinationFailure
		return nil, fmt.Errorf("%w: %d subsets of %d shares failed, no replies left: %v",
			domain.ErrShareCombinationFailure, sess.FailedCombinations(), len(shares), combineErr)
	}
	outcome = OutcomeInsufficient
	log.Warn().Int("accepted", len(shares)).Msg("replies exhausted before quorum")
	return nil, insufficient(len(shares), ritual.Threshold, "replies exhausted", errs)
}

// combineWithNewest tries every t-subset of shares that contains the last
// share, in lexicographic order, and returns the first plaintext that opens.
// tried counts the subsets that failed.
func combineWithNewest(c threshold.Capsule, shares []*share.PubShare, t, n int) (pt []byte, tried int, err error) {
	newest := len(shares) - 1
	idx := make([]int, t-1)
	for i := range idx {
		idx[i] = i
	}
	subset := make([]*share.PubShare, t)
	for {
		for i, j := range idx {
			subset[i] = shares[j]
		}
		subset[t-1] = shares[newest]
		pt, err = threshold.Combine(c, subset, t, n)
		if err == nil {
			return pt, tried, nil
		}
		tried++

		// Advance to the next (t-1)-combination of shares[:newest].
		i := len(idx) - 1
		for i >= 0 && idx[i] == newest-len(idx)+i {
			i--
		}
		if i < 0 {
			return nil, tried, err
		}
		idx[i]++
		for j := i + 1; j < len(idx); j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// prepare creates the session's ephemeral key and the encrypted request
// for every participant.
func (s *Service) prepare(sess *Session) (domain.DecryptionBatch, error) {
	var err error
	sess.ephPriv, sess.ephPub, err = crypto.GenerateX25519()
	if err != nil {
		return domain.DecryptionBatch{}, err
	}
	req := threshold.Request{
		RitualID:  sess.capsule.RitualID,
		K:         sess.capsule.K,
		Condition: sess.capsule.Condition,
	}
	batch := domain.DecryptionBatch{
		RitualID:  sess.ritual.ID,
		Threshold: sess.ritual.Threshold,
		Requests:  make(map[domain.ParticipantID][]byte, sess.ritual.Size()),
	}
	for _, p := range sess.ritual.Participants {
		key, err := threshold.PairKey(sess.ephPriv, p.RequestKey, sess.ephPub, p.RequestKey)
		if err != nil {
			return domain.DecryptionBatch{}, fmt.Errorf("pair key for %s: %w", p.ID(), err)
		}
		sess.pairKeys[p.ID()] = key
		env, err := threshold.SealRequest(key, sess.ephPub, req)
		if err != nil {
			return domain.DecryptionBatch{}, err
		}
		batch.Requests[p.ID()] = env
	}
	return batch, nil
}

// verify decrypts and checks one reply. It runs on the worker pool and only
// reads session state that is fixed after prepare.
func (s *Service) verify(sess *Session, r domain.ParticipantReply) verified {
	out := verified{participant: r.Participant}
	if r.Err != nil {
		out.reason, out.err = "participant_error", r.Err
		return out
	}
	resp, err := threshold.OpenResponse(sess.pairKeys[r.Participant], sess.capsule.RitualID, r.Response)
	if err != nil {
		out.reason, out.err = "undecryptable", err
		return out
	}
	defer memzero.Zero(resp.Share.U)

	sh, err := threshold.VerifyShare(resp.Share, sess.members[r.Participant], sess.capsule.K)
	if err != nil {
		out.reason, out.err = "invalid_proof", err
		return out
	}
	out.share = sh
	return out
}

func insufficient(have, need int, why string, errs *multierror.Error) error {
	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %s with %d of %d shares: %v", domain.ErrInsufficientShares, why, have, need, err)
	}
	return fmt.Errorf("%w: %s with %d of %d shares", domain.ErrInsufficientShares, why, have, need)
}

// Compile-time assertion that Service implements domain.DecryptionService.
var _ domain.DecryptionService = (*Service)(nil)
