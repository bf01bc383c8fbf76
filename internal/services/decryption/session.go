package decryption

import (
	"sync"

	"github.com/google/uuid"
	"go.dedis.ch/kyber/v3/share"
	"go.uber.org/atomic"

	"dossier/internal/domain"
	"dossier/internal/threshold"
	"dossier/internal/util/memzero"
)

// Session is the ephemeral state of one decryption attempt. It is never
// persisted. Callers only see it through a session hook, after it ended.
type Session struct {
	id      uuid.UUID
	ritual  domain.Ritual
	capsule threshold.Capsule

	ephPriv  domain.X25519Private
	ephPub   domain.X25519Public
	pairKeys map[domain.ParticipantID][]byte
	members  map[domain.ParticipantID]domain.Participant

	mu       sync.Mutex
	material []*share.PubShare

	accepted atomic.Int32
	rejected atomic.Int32
	failed   atomic.Int32
	wiped    atomic.Bool
}

func newSession(ritual domain.Ritual, c threshold.Capsule) *Session {
	s := &Session{
		id:       uuid.New(),
		ritual:   ritual,
		capsule:  c,
		pairKeys: make(map[domain.ParticipantID][]byte, ritual.Size()),
		members:  make(map[domain.ParticipantID]domain.Participant, ritual.Size()),
	}
	for _, p := range ritual.Participants {
		s.members[p.ID()] = p
	}
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// Accepted returns how many shares passed verification.
func (s *Session) Accepted() int { return int(s.accepted.Load()) }

// Rejected returns how many replies were dropped.
func (s *Session) Rejected() int { return int(s.rejected.Load()) }

// FailedCombinations returns how many t-subsets of verified shares failed
// to open the capsule.
func (s *Session) FailedCombinations() int { return int(s.failed.Load()) }

// Wiped reports whether the ephemeral key, every per-pair key and every
// share the session held are cleared.
func (s *Session) Wiped() bool {
	if !s.wiped.Load() {
		return false
	}
	if s.ephPriv != (domain.X25519Private{}) {
		return false
	}
	for _, k := range s.pairKeys {
		for _, b := range k {
			if b != 0 {
				return false
			}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return threshold.SharesWiped(s.material)
}

// track records a share so wipe can clear it.
func (s *Session) track(sh *share.PubShare) {
	s.mu.Lock()
	s.material = append(s.material, sh)
	s.mu.Unlock()
}

func (s *Session) wipe() {
	memzero.Zero(s.ephPriv[:])
	for _, k := range s.pairKeys {
		memzero.Zero(k)
	}
	s.mu.Lock()
	threshold.WipeShares(s.material)
	s.mu.Unlock()
	s.wiped.Store(true)
}
