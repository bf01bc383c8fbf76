package decryption_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dossier/internal/condition"
	"dossier/internal/coordination"
	"dossier/internal/domain"
	"dossier/internal/services/decryption"
	"dossier/internal/services/encryption"
	"dossier/internal/store"
	"dossier/internal/threshold"
)

var (
	registry = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	owner    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

const ritualID domain.RitualID = 42

type harness struct {
	local   *coordination.Local
	sim     *threshold.Ritual
	capsule []byte

	mu       sync.Mutex
	sessions []*decryption.Session
	outcomes []string
}

func newHarness(t *testing.T, tt, n int, faults map[int]threshold.Fault) *harness {
	t.Helper()
	sim, err := threshold.Simulate(ritualID, tt, n, nil, faults, zerolog.Nop())
	require.NoError(t, err)
	return withRitual(t, sim)
}

func withRitual(t *testing.T, sim *threshold.Ritual) *harness {
	t.Helper()
	h := &harness{local: coordination.NewLocal(zerolog.Nop()), sim: sim}
	h.local.Add(sim)

	enc, err := encryption.New(h.local, condition.NewEncoder(registry, 31337))
	require.NoError(t, err)
	h.capsule, err = enc.Encrypt(context.Background(), []byte("last will and testament"), owner, big.NewInt(1), ritualID)
	require.NoError(t, err)
	return h
}

func (h *harness) service(opts ...decryption.Option) *decryption.Service {
	opts = append([]decryption.Option{
		decryption.WithSessionHook(func(s *decryption.Session) {
			h.mu.Lock()
			h.sessions = append(h.sessions, s)
			h.mu.Unlock()
		}),
		decryption.WithMetrics(h),
	}, opts...)
	return decryption.New(h.local, h.local, opts...)
}

func (h *harness) lastSession(t *testing.T) *decryption.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.sessions)
	return h.sessions[len(h.sessions)-1]
}

func (h *harness) SessionStarted() {}
func (h *harness) SessionFinished(outcome string, _ time.Duration) {
	h.mu.Lock()
	h.outcomes = append(h.outcomes, outcome)
	h.mu.Unlock()
}
func (h *harness) ShareAccepted()       {}
func (h *harness) ShareRejected(string) {}

func TestDecrypt_AllHonest(t *testing.T) {
	h := newHarness(t, 3, 5, nil)

	pt, err := h.service().Decrypt(context.Background(), h.capsule)
	require.NoError(t, err)
	assert.Equal(t, "last will and testament", string(pt))

	sess := h.lastSession(t)
	assert.True(t, sess.Wiped())
	assert.GreaterOrEqual(t, sess.Accepted(), 3)
	assert.Equal(t, []string{decryption.OutcomeSuccess}, h.outcomes)
}

func TestDecrypt_QuorumIdempotence(t *testing.T) {
	h := newHarness(t, 3, 5, nil)
	ps := h.sim.Ritual.Participants
	svc := h.service()

	all, err := svc.Decrypt(context.Background(), h.capsule)
	require.NoError(t, err)
	require.Equal(t, "last will and testament", string(all))

	for _, quorum := range [][]int{{0, 1, 2}, {2, 3, 4}, {0, 2, 4}, {1, 3, 4}} {
		// Everyone outside the quorum answers long after it combined.
		for i, p := range ps {
			h.local.SetLatency(p.ID(), time.Hour)
			for _, q := range quorum {
				if i == q {
					h.local.SetLatency(p.ID(), 0)
				}
			}
		}

		pt, err := svc.Decrypt(context.Background(), h.capsule)
		require.NoError(t, err, "quorum %v", quorum)
		assert.Equal(t, all, pt, "quorum %v", quorum)
		assert.Equal(t, 3, h.lastSession(t).Accepted(), "quorum %v", quorum)
		assert.True(t, h.lastSession(t).Wiped())
	}
}

func TestDecrypt_OneMalformedShare(t *testing.T) {
	for _, fault := range []threshold.Fault{threshold.FaultBadShare, threshold.FaultGarbage} {
		h := newHarness(t, 3, 5, map[int]threshold.Fault{2: fault})
		// Hold two honest nodes back so the faulty reply is always processed.
		h.local.SetLatency(h.sim.Ritual.Participants[3].ID(), 100*time.Millisecond)
		h.local.SetLatency(h.sim.Ritual.Participants[4].ID(), 100*time.Millisecond)

		pt, err := h.service().Decrypt(context.Background(), h.capsule)
		require.NoError(t, err)
		assert.Equal(t, "last will and testament", string(pt))
		assert.Equal(t, 1, h.lastSession(t).Rejected())
	}
}

func TestDecrypt_FewerThanThreshold(t *testing.T) {
	h := newHarness(t, 3, 5, map[int]threshold.Fault{
		0: threshold.FaultRefuse,
		1: threshold.FaultBadShare,
		4: threshold.FaultRefuse,
	})

	_, err := h.service().Decrypt(context.Background(), h.capsule)
	require.ErrorIs(t, err, domain.ErrInsufficientShares)
	assert.True(t, domain.Retryable(err))
	assert.Contains(t, err.Error(), "unavailable", "participant errors are aggregated")

	sess := h.lastSession(t)
	assert.True(t, sess.Wiped())
	assert.Equal(t, 2, sess.Accepted())
	assert.Equal(t, []string{decryption.OutcomeInsufficient}, h.outcomes)
}

func TestDecrypt_Timeout(t *testing.T) {
	h := newHarness(t, 2, 3, nil)
	for _, p := range h.sim.Ritual.Participants[1:] {
		h.local.SetLatency(p.ID(), time.Hour)
	}

	start := time.Now()
	_, err := h.service(decryption.WithTimeout(100*time.Millisecond)).Decrypt(context.Background(), h.capsule)
	require.ErrorIs(t, err, domain.ErrInsufficientShares)
	assert.Less(t, time.Since(start), 10*time.Second)

	sess := h.lastSession(t)
	assert.True(t, sess.Wiped(), "partial shares are wiped on timeout")
	assert.Equal(t, 1, sess.Accepted())
}

func TestDecrypt_CallerCancels(t *testing.T) {
	h := newHarness(t, 2, 3, nil)
	for _, p := range h.sim.Ritual.Participants {
		h.local.SetLatency(p.ID(), time.Hour)
	}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := h.service().Decrypt(ctx, h.capsule)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, h.lastSession(t).Wiped())
	assert.Equal(t, []string{decryption.OutcomeCancelled}, h.outcomes)
}

// liarRitual deals a 3-of-5 ritual in which the listed participants hold
// shares of another key but registered the matching public shares, so their
// replies verify yet break interpolation.
func liarRitual(t *testing.T, liars ...int) *threshold.Ritual {
	t.Helper()
	honest, err := threshold.Deal(3, 5)
	require.NoError(t, err)
	other, err := threshold.Deal(3, 5)
	require.NoError(t, err)

	sim := &threshold.Ritual{Ritual: domain.Ritual{ID: ritualID, Threshold: 3, PublicKey: honest.PublicKey}}
	for i := 0; i < 5; i++ {
		ks, pub := honest.Shares[i], honest.PublicShares[i]
		for _, l := range liars {
			if i == l {
				ks, pub = other.Shares[i], other.PublicShares[i]
			}
		}
		node, err := threshold.NewNode(ritualID, ks, pub)
		require.NoError(t, err)
		sim.Nodes = append(sim.Nodes, node)
		sim.Ritual.Participants = append(sim.Ritual.Participants, node.Participant())
	}
	return sim
}

func TestDecrypt_TriesOtherSubsetsAfterFailedCombination(t *testing.T) {
	h := withRitual(t, liarRitual(t, 4))
	ps := h.sim.Ritual.Participants
	h.local.SetLatency(ps[4].ID(), 100*time.Millisecond)
	h.local.SetLatency(ps[2].ID(), 400*time.Millisecond)
	h.local.SetLatency(ps[3].ID(), 400*time.Millisecond)

	pt, err := h.service().Decrypt(context.Background(), h.capsule)
	require.NoError(t, err)
	assert.Equal(t, "last will and testament", string(pt))
	assert.Equal(t, 1, h.lastSession(t).FailedCombinations())
}

func TestDecrypt_InconsistentShareFirstDoesNotBlockHonestQuorum(t *testing.T) {
	h := withRitual(t, liarRitual(t, 4))
	for _, p := range h.sim.Ritual.Participants[:4] {
		h.local.SetLatency(p.ID(), 100*time.Millisecond)
	}

	pt, err := h.service().Decrypt(context.Background(), h.capsule)
	require.NoError(t, err)
	assert.Equal(t, "last will and testament", string(pt))

	sess := h.lastSession(t)
	assert.GreaterOrEqual(t, sess.FailedCombinations(), 1)
	assert.True(t, sess.Wiped())
	assert.Equal(t, []string{decryption.OutcomeSuccess}, h.outcomes)
}

func TestDecrypt_CombinationFailureWithoutHonestQuorum(t *testing.T) {
	h := withRitual(t, liarRitual(t, 2, 3, 4))

	_, err := h.service().Decrypt(context.Background(), h.capsule)
	require.ErrorIs(t, err, domain.ErrShareCombinationFailure)

	sess := h.lastSession(t)
	assert.Equal(t, 5, sess.Accepted())
	assert.Equal(t, 10, sess.FailedCombinations(), "every 3-of-5 subset is tried once")
	assert.True(t, sess.Wiped())
	assert.Equal(t, []string{decryption.OutcomeCombinationFailure}, h.outcomes)
}

func TestDecrypt_MalformedCapsule(t *testing.T) {
	h := newHarness(t, 1, 1, nil)
	_, err := h.service().Decrypt(context.Background(), []byte("not a capsule"))
	assert.ErrorIs(t, err, domain.ErrMalformedCapsule)
}

type fixedTracker struct{ status domain.ReleaseStatus }

func (f fixedTracker) Evaluate(context.Context, domain.Dossier) (domain.Evaluation, error) {
	return domain.Evaluation{Status: f.status}, nil
}

func (f fixedTracker) EvaluateAt(domain.DossierState, time.Time) domain.Evaluation {
	return domain.Evaluation{Status: f.status}
}

func TestRelease(t *testing.T) {
	h := newHarness(t, 2, 3, nil)

	db, err := store.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	capsules := store.NewCapsuleStore(db)
	cid, err := capsules.Put(h.capsule)
	require.NoError(t, err)
	d := domain.Dossier{Owner: owner, ID: big.NewInt(1), RitualID: ritualID, Capsule: cid}

	for _, status := range []domain.ReleaseStatus{domain.StatusActive, domain.StatusAwaitingConfirmation} {
		_, err := h.service(decryption.WithRelease(fixedTracker{status}, capsules)).Release(context.Background(), d)
		assert.ErrorIs(t, err, domain.ErrNotReleasable)
		assert.False(t, domain.Retryable(err))
	}

	pt, err := h.service(decryption.WithRelease(fixedTracker{domain.StatusReleasable}, capsules)).Release(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "last will and testament", string(pt))

	_, err = h.service().Release(context.Background(), d)
	assert.True(t, err != nil && !errors.Is(err, domain.ErrNotReleasable))
}
