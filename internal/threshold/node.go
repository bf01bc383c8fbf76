package threshold

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"dossier/internal/crypto"
	"dossier/internal/domain"
	"dossier/internal/util/memzero"
)

// ErrConditionNotMet is returned by a node whose condition gate refuses a
// request.
var ErrConditionNotMet = errors.New("threshold: release condition not met")

// ConditionGate decides whether a participant may serve a share for cond.
type ConditionGate interface {
	Allow(ctx context.Context, cond domain.ReleaseCondition) (bool, error)
}

// GateFunc adapts a function to ConditionGate.
type GateFunc func(ctx context.Context, cond domain.ReleaseCondition) (bool, error)

// Allow calls f.
func (f GateFunc) Allow(ctx context.Context, cond domain.ReleaseCondition) (bool, error) {
	return f(ctx, cond)
}

// AllowAll is a gate that serves every request.
var AllowAll ConditionGate = GateFunc(func(context.Context, domain.ReleaseCondition) (bool, error) {
	return true, nil
})

// Fault is a misbehavior a simulated node can be told to exhibit.
type Fault int

const (
	// FaultNone is an honest node.
	FaultNone Fault = iota
	// FaultBadShare returns a well-formed share computed with the wrong secret.
	FaultBadShare
	// FaultGarbage returns bytes that do not decrypt.
	FaultGarbage
	// FaultRefuse returns an error instead of a share.
	FaultRefuse
)

// Node simulates one ritual participant.
type Node struct {
	ritual     domain.RitualID
	info       domain.Participant
	share      KeyShare
	requestKey domain.X25519Private
	gate       ConditionGate
	fault      Fault
	log        zerolog.Logger
}

// NodeOption configures a Node.
type NodeOption func(*Node)

// WithGate sets the node's condition gate. The default serves every request.
func WithGate(g ConditionGate) NodeOption {
	return func(n *Node) {
		if g != nil {
			n.gate = g
		}
	}
}

// WithFault makes the node misbehave.
func WithFault(f Fault) NodeOption { return func(n *Node) { n.fault = f } }

// WithNodeLogger sets the node's logger.
func WithNodeLogger(log zerolog.Logger) NodeOption { return func(n *Node) { n.log = log } }

// NewNode returns a participant holding ks for ritual. It generates the
// node's request key and provider address.
func NewNode(ritual domain.RitualID, ks KeyShare, publicShare []byte, opts ...NodeOption) (*Node, error) {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	n := &Node{
		ritual: ritual,
		info: domain.Participant{
			Index:       ks.Index,
			Provider:    common.BytesToAddress(ethcrypto.Keccak256(pub[:])[12:]),
			RequestKey:  pub,
			PublicShare: publicShare,
		},
		share:      ks,
		requestKey: priv,
		gate:       AllowAll,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.log = n.log.With().Str("component", "node").Str("participant", n.info.ID().String()).Logger()
	return n, nil
}

// Participant returns the node's public registration.
func (n *Node) Participant() domain.Participant { return n.info }

// Handle answers one request envelope with a response envelope.
func (n *Node) Handle(ctx context.Context, envelope []byte) ([]byte, error) {
	if n.fault == FaultRefuse {
		return nil, fmt.Errorf("participant %s unavailable", n.info.ID())
	}
	eph, err := RequestSender(envelope)
	if err != nil {
		return nil, err
	}
	key, err := PairKey(n.requestKey, eph, eph, n.info.RequestKey)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	req, err := OpenRequest(key, n.ritual, envelope)
	if err != nil {
		return nil, err
	}
	if req.RitualID != n.ritual {
		return nil, fmt.Errorf("request for ritual %s, serving %s", req.RitualID, n.ritual)
	}
	ok, err := n.gate.Allow(ctx, req.Condition)
	if err != nil {
		return nil, fmt.Errorf("evaluate condition: %w", err)
	}
	if !ok {
		n.log.Info().Msg("condition not met, refusing share")
		return nil, ErrConditionNotMet
	}

	ks := n.share
	if n.fault == FaultBadShare {
		ks = KeyShare{Index: n.share.Index, Secret: suite.Scalar().Pick(suite.RandomStream())}
		defer ks.Wipe()
	}
	ds, err := PartialDecrypt(ks, req.K)
	if err != nil {
		return nil, err
	}
	if n.fault == FaultGarbage {
		return []byte("not an envelope at all, just noise"), nil
	}
	n.log.Debug().Msg("share served")
	return SealResponse(key, n.ritual, Response{Share: ds})
}

// Ritual bundles a simulated ritual and its nodes.
type Ritual struct {
	Ritual domain.Ritual
	Nodes  []*Node
}

// Node returns the node for participant id, or nil.
func (r *Ritual) Node(id domain.ParticipantID) *Node {
	for _, n := range r.Nodes {
		if n.info.ID() == id {
			return n
		}
	}
	return nil
}

// Simulate deals a fresh t-of-n ritual and builds its nodes. faults maps a
// participant index to the misbehavior it should exhibit.
func Simulate(id domain.RitualID, t, n int, gate ConditionGate, faults map[int]Fault, log zerolog.Logger) (*Ritual, error) {
	d, err := Deal(t, n)
	if err != nil {
		return nil, err
	}
	sim := &Ritual{
		Ritual: domain.Ritual{
			ID:        id,
			Threshold: t,
			PublicKey: d.PublicKey,
		},
	}
	for i, ks := range d.Shares {
		node, err := NewNode(id, ks, d.PublicShares[i],
			WithGate(gate),
			WithFault(faults[i]),
			WithNodeLogger(log),
		)
		if err != nil {
			return nil, err
		}
		sim.Nodes = append(sim.Nodes, node)
		sim.Ritual.Participants = append(sim.Ritual.Participants, node.Participant())
	}
	return sim, nil
}
