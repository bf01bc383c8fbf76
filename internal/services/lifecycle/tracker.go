package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"dossier/internal/domain"
)

// Tracker evaluates dossiers against live guardian and registry reads.
type Tracker struct {
	ledger domain.GuardianLedger
	states domain.DossierReader
	clock  func() time.Time
	log    zerolog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option { return func(t *Tracker) { t.clock = clock } }

// WithStateReader makes Evaluate read the dossier state from r instead of
// trusting the state carried by the dossier. The confirmations r reports
// are used as is and the ledger is not consulted.
func WithStateReader(r domain.DossierReader) Option { return func(t *Tracker) { t.states = r } }

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option { return func(t *Tracker) { t.log = log } }

// NewTracker returns a Tracker reading confirmations from ledger.
func NewTracker(ledger domain.GuardianLedger, opts ...Option) *Tracker {
	t := &Tracker{ledger: ledger, clock: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.With().Str("component", "lifecycle").Logger()
	return t
}

// Evaluate reads the current confirmation count for d and derives its
// status at the tracker's clock.
func (t *Tracker) Evaluate(ctx context.Context, d domain.Dossier) (domain.Evaluation, error) {
	state := d.State
	switch {
	case t.states != nil:
		s, err := t.states.DossierState(ctx, d.Owner, d.ID)
		if err != nil {
			return domain.Evaluation{}, fmt.Errorf("read dossier state: %w", err)
		}
		state = s
	case state.GuardiansEnabled() && t.ledger != nil:
		n, err := t.ledger.Confirmations(ctx, d.Owner, d.ID)
		if err != nil {
			return domain.Evaluation{}, fmt.Errorf("read guardian confirmations: %w", err)
		}
		state.GuardianConfirmations = n
	}
	state.GuardianConfirmations = min(state.GuardianConfirmations, state.GuardianTotal)
	ev := t.EvaluateAt(state, t.clock())
	t.log.Debug().
		Str("owner", d.Owner.Hex()).
		Str("dossier_id", d.ID.String()).
		Stringer("status", ev.Status).
		Msg("dossier evaluated")
	return ev, nil
}

// EvaluateAt derives the status of state at now without any reads.
func (t *Tracker) EvaluateAt(state domain.DossierState, now time.Time) domain.Evaluation {
	return Evaluate(state, now)
}

var _ domain.LifecycleTracker = (*Tracker)(nil)
