package coordination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dossier/internal/domain"
	"dossier/internal/threshold"
)

// Local coordinates simulated rituals in process.
type Local struct {
	mu      sync.RWMutex
	rituals map[domain.RitualID]*threshold.Ritual
	latency map[domain.ParticipantID]time.Duration
	log     zerolog.Logger
}

// NewLocal returns an empty Local coordinator.
func NewLocal(log zerolog.Logger) *Local {
	return &Local{
		rituals: make(map[domain.RitualID]*threshold.Ritual),
		latency: make(map[domain.ParticipantID]time.Duration),
		log:     log.With().Str("component", "local-coordinator").Logger(),
	}
}

// Add registers a simulated ritual.
func (l *Local) Add(r *threshold.Ritual) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rituals[r.Ritual.ID] = r
}

// SetLatency delays every answer from participant id by d.
func (l *Local) SetLatency(id domain.ParticipantID, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.latency[id] = d
}

// Ritual returns the registration of ritual id.
func (l *Local) Ritual(_ context.Context, id domain.RitualID) (domain.Ritual, error) {
	r, err := l.lookup(id)
	if err != nil {
		return domain.Ritual{}, err
	}
	return r.Ritual, nil
}

// PublicKey returns the public key of ritual id.
func (l *Local) PublicKey(ctx context.Context, id domain.RitualID) ([]byte, error) {
	r, err := l.Ritual(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.PublicKey, nil
}

// Submit hands every request to its node concurrently. Replies are
// delivered in completion order; nodes still working when ctx ends are
// abandoned.
func (l *Local) Submit(ctx context.Context, batch domain.DecryptionBatch) (<-chan domain.ParticipantReply, error) {
	r, err := l.lookup(batch.RitualID)
	if err != nil {
		return nil, err
	}
	l.mu.RLock()
	latency := make(map[domain.ParticipantID]time.Duration, len(l.latency))
	for k, v := range l.latency {
		latency[k] = v
	}
	l.mu.RUnlock()

	out := make(chan domain.ParticipantReply, len(batch.Requests))
	g, gctx := errgroup.WithContext(ctx)
	for id, env := range batch.Requests {
		node := r.Node(id)
		g.Go(func() error {
			if node == nil {
				out <- domain.ParticipantReply{Participant: id, Err: fmt.Errorf("unknown participant %s", id)}
				return nil
			}
			if d := latency[id]; d > 0 {
				select {
				case <-time.After(d):
				case <-gctx.Done():
					return nil
				}
			}
			resp, err := node.Handle(gctx, env)
			if gctx.Err() != nil {
				return nil
			}
			out <- domain.ParticipantReply{Participant: id, Response: resp, Err: err}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(out)
	}()
	l.log.Debug().Str("ritual_id", batch.RitualID.String()).Int("requests", len(batch.Requests)).Msg("batch dispatched")
	return out, nil
}

func (l *Local) lookup(id domain.RitualID) (*threshold.Ritual, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.rituals[id]
	if !ok {
		return nil, fmt.Errorf("coordination: unknown ritual %s", id)
	}
	return r, nil
}

var (
	_ domain.Coordinator  = (*Local)(nil)
	_ domain.RitualSource = (*Local)(nil)
)
