package encryption

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"dossier/internal/condition"
	"dossier/internal/domain"
	"dossier/internal/threshold"
	"dossier/internal/util/memzero"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryBase     = 200 * time.Millisecond
	DefaultCacheSize     = 64
)

// Service is the threshold encryption client.
type Service struct {
	keys     domain.RitualSource
	encoder  condition.Encoder
	capsules domain.CapsuleStore
	cache    *lru.Cache[domain.RitualID, []byte]
	attempts uint64
	base     time.Duration
	log      zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRetry bounds key-source retries to attempts extra tries with an
// exponential backoff starting at base.
func WithRetry(attempts uint64, base time.Duration) Option {
	return func(s *Service) {
		s.attempts = attempts
		if base > 0 {
			s.base = base
		}
	}
}

// WithCapsuleStore sets where EncryptFile stores capsules.
func WithCapsuleStore(c domain.CapsuleStore) Option {
	return func(s *Service) { s.capsules = c }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// New returns an encryption Service reading ritual keys from keys.
func New(keys domain.RitualSource, encoder condition.Encoder, opts ...Option) (*Service, error) {
	cache, err := lru.New[domain.RitualID, []byte](DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	s := &Service{
		keys:     keys,
		encoder:  encoder,
		cache:    cache,
		attempts: DefaultRetryAttempts,
		base:     DefaultRetryBase,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "encryption").Logger()
	return s, nil
}

// Encrypt seals plaintext to ritual under the release condition of
// (owner, dossierID) and returns the capsule bytes. The plaintext buffer is
// zeroed before Encrypt returns.
//
// Steps:
//  1. Fetch the ritual public key, retrying transient failures.
//  2. Encode the release condition.
//  3. Threshold-encrypt with the condition bound as associated data.
func (s *Service) Encrypt(
	ctx context.Context,
	plaintext []byte,
	owner common.Address,
	dossierID *big.Int,
	ritual domain.RitualID,
) ([]byte, error) {
	defer memzero.Zero(plaintext)

	pk, err := s.publicKey(ctx, ritual)
	if err != nil {
		return nil, err
	}

	cond, err := s.encoder.Encode(owner, dossierID)
	if err != nil {
		return nil, err
	}

	c, err := threshold.Encrypt(pk, ritual, cond, plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: ritual %s: %w", domain.ErrKeySourceUnavailable, ritual, err)
	}
	out, err := c.Marshal()
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("ritual_id", ritual.String()).
		Str("owner", owner.Hex()).
		Str("dossier_id", dossierID.String()).
		Int("capsule_bytes", len(out)).
		Msg("capsule sealed")
	return out, nil
}

// EncryptFile encrypts the file at path, stores the capsule and returns the
// dossier record that references it.
func (s *Service) EncryptFile(
	ctx context.Context,
	path string,
	owner common.Address,
	dossierID *big.Int,
	ritual domain.RitualID,
) (domain.Dossier, error) {
	if s.capsules == nil {
		return domain.Dossier{}, fmt.Errorf("encryption: no capsule store configured")
	}
	plaintext, err := os.ReadFile(path)
	if err != nil {
		return domain.Dossier{}, err
	}
	capsule, err := s.Encrypt(ctx, plaintext, owner, dossierID, ritual)
	if err != nil {
		return domain.Dossier{}, err
	}
	id, err := s.capsules.Put(capsule)
	if err != nil {
		return domain.Dossier{}, err
	}
	return domain.Dossier{
		Owner:    owner,
		ID:       new(big.Int).Set(dossierID),
		RitualID: ritual,
		Capsule:  id,
	}, nil
}

func (s *Service) publicKey(ctx context.Context, ritual domain.RitualID) ([]byte, error) {
	if pk, ok := s.cache.Get(ritual); ok {
		return pk, nil
	}

	backoff := retry.NewExponential(s.base)
	var pk []byte
	err := retry.Do(ctx, retry.WithMaxRetries(s.attempts, backoff), func(ctx context.Context) error {
		var err error
		pk, err = s.keys.PublicKey(ctx, ritual)
		if err != nil {
			s.log.Warn().Err(err).Str("ritual_id", ritual.String()).Msg("fetch public key failed, retrying")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ritual %s: %w", domain.ErrKeySourceUnavailable, ritual, err)
	}
	if _, err := threshold.DecodePublicKey(pk); err != nil {
		return nil, fmt.Errorf("%w: ritual %s: %w", domain.ErrKeySourceUnavailable, ritual, err)
	}
	s.cache.Add(ritual, pk)
	return pk, nil
}

// Compile-time assertion that Service implements domain.EncryptionService.
var _ domain.EncryptionService = (*Service)(nil)
