package custody

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"dossier/internal/crypto"
	"dossier/internal/domain"
	"dossier/internal/util/memzero"
)

const (
	// BundleKey is the storage key of the key bundle.
	BundleKey = "dossier.keybundle.v1"

	bundleVersion = 1
)

// bundleAD is the associated data bound into every wrapped key.
var bundleAD = []byte(BundleKey)

// dummySalt feeds the KDF when no bundle exists so a missing bundle costs
// the same as a wrong secret.
var dummySalt = make([]byte, crypto.SaltBytes)

// bundleLocks serializes operations per bundle key across handles.
var bundleLocks sync.Map

func lockFor(key string) *sync.Mutex {
	mu, _ := bundleLocks.LoadOrStore(key, new(sync.Mutex))
	return mu.(*sync.Mutex)
}

// Option configures a Store.
type Option func(*Store)

// WithIterations sets the PBKDF2 work factor for new bundles. Values below
// crypto.MinKDFIterations are raised to the minimum.
func WithIterations(n int) Option {
	return func(s *Store) {
		if n < crypto.MinKDFIterations {
			n = crypto.MinKDFIterations
		}
		s.iterations = n
	}
}

// WithUnsafeIterations sets the work factor and the accepted minimum to n.
// It exists for tests that run thousands of derivations.
func WithUnsafeIterations(n int) Option {
	return func(s *Store) {
		s.iterations = n
		s.minIterations = n
	}
}

// WithStorageKey stores the bundle under key instead of BundleKey.
func WithStorageKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithLogger sets the logger. Secrets and key material are never logged.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Store is the key custody handle.
type Store struct {
	storage       domain.SecureStorage
	key           string
	iterations    int
	minIterations int
	log           zerolog.Logger
}

// New returns a Store over storage.
func New(storage domain.SecureStorage, opts ...Option) *Store {
	s := &Store{
		storage:       storage,
		key:           BundleKey,
		iterations:    crypto.DefaultKDFIterations,
		minIterations: crypto.MinKDFIterations,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "custody").Logger()
	return s
}

// Create generates a fresh signing key, wraps it under secret and persists
// the bundle. It returns the derived account address.
func (s *Store) Create(secret string) (common.Address, error) {
	if err := checkSecret(secret); err != nil {
		return common.Address{}, err
	}

	mu := lockFor(s.key)
	mu.Lock()
	defer mu.Unlock()

	if _, ok, err := s.storage.Load(s.key); err != nil {
		return common.Address{}, fmt.Errorf("load bundle: %w", err)
	} else if ok {
		return common.Address{}, domain.ErrBundleExists
	}

	key, err := crypto.GenerateSigningKey()
	if err != nil {
		return common.Address{}, err
	}
	defer crypto.WipeSigningKey(key)

	addr := crypto.AddressOf(key)
	if err := s.wrapAndSave(secret, key, addr); err != nil {
		return common.Address{}, err
	}
	s.log.Info().Str("address", addr.Hex()).Int("iterations", s.iterations).Msg("key bundle created")
	return addr, nil
}

// Unlock unwraps the signing key with secret. The caller owns the returned
// key and should wipe it with crypto.WipeSigningKey when done.
func (s *Store) Unlock(secret string) (*ecdsa.PrivateKey, error) {
	mu := lockFor(s.key)
	mu.Lock()
	defer mu.Unlock()

	return s.unlockLocked(secret)
}

// ChangeSecret re-wraps the signing key under newSecret. The stored bundle
// is replaced only after the new bundle is fully built.
func (s *Store) ChangeSecret(oldSecret, newSecret string) error {
	if err := checkSecret(newSecret); err != nil {
		return err
	}

	mu := lockFor(s.key)
	mu.Lock()
	defer mu.Unlock()

	key, err := s.unlockLocked(oldSecret)
	if err != nil {
		return err
	}
	defer crypto.WipeSigningKey(key)

	addr := crypto.AddressOf(key)
	if err := s.wrapAndSave(newSecret, key, addr); err != nil {
		return err
	}
	s.log.Info().Str("address", addr.Hex()).Msg("secret changed")
	return nil
}

// Reset irreversibly deletes the bundle. Resetting a device without a
// bundle is not an error.
func (s *Store) Reset() error {
	mu := lockFor(s.key)
	mu.Lock()
	defer mu.Unlock()

	if err := s.storage.Delete(s.key); err != nil {
		return fmt.Errorf("delete bundle: %w", err)
	}
	s.log.Warn().Msg("key bundle deleted")
	return nil
}

// Exists reports whether a bundle is stored.
func (s *Store) Exists() (bool, error) {
	mu := lockFor(s.key)
	mu.Lock()
	defer mu.Unlock()

	_, ok, err := s.storage.Load(s.key)
	return ok, err
}

// Address returns the account address recorded in the bundle without
// unwrapping the key.
func (s *Store) Address() (common.Address, error) {
	mu := lockFor(s.key)
	mu.Lock()
	defer mu.Unlock()

	b, ok, err := s.storage.Load(s.key)
	if err != nil {
		return common.Address{}, fmt.Errorf("load bundle: %w", err)
	}
	if !ok {
		return common.Address{}, domain.ErrNoBundle
	}
	bundle, err := s.decodeBundle(b)
	if err != nil {
		return common.Address{}, err
	}
	return bundle.Address, nil
}

func (s *Store) unlockLocked(secret string) (*ecdsa.PrivateKey, error) {
	if !wellFormed(secret) {
		return nil, domain.ErrInvalidSecret
	}

	b, ok, err := s.storage.Load(s.key)
	if err != nil {
		return nil, fmt.Errorf("load bundle: %w", err)
	}
	if !ok {
		memzero.Zero(crypto.DeriveKEK([]byte(secret), dummySalt, s.iterations))
		return nil, domain.ErrNoBundle
	}
	bundle, err := s.decodeBundle(b)
	if err != nil {
		return nil, err
	}

	kek := crypto.DeriveKEK([]byte(secret), bundle.Salt, bundle.KDF.Iterations)
	defer memzero.Zero(kek)

	raw, err := crypto.Unwrap(kek, bundle.IV, bundle.Ciphertext, bundle.Tag, bundleAD)
	if errors.Is(err, crypto.ErrAuthFailed) {
		return nil, domain.ErrWrongSecret
	}
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(raw)

	key, err := crypto.ParseSigningKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: unparsable key", domain.ErrBundleCorrupted)
	}
	if crypto.AddressOf(key) != bundle.Address {
		crypto.WipeSigningKey(key)
		return nil, fmt.Errorf("%w: address mismatch", domain.ErrBundleCorrupted)
	}
	return key, nil
}

func (s *Store) wrapAndSave(secret string, key *ecdsa.PrivateKey, addr common.Address) error {
	salt := make([]byte, crypto.SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	kek := crypto.DeriveKEK([]byte(secret), salt, s.iterations)
	defer memzero.Zero(kek)

	raw := crypto.MarshalSigningKey(key)
	defer memzero.Zero(raw)

	iv, ct, tag, err := crypto.Wrap(kek, raw, bundleAD)
	if err != nil {
		return err
	}
	bundle := domain.KeyBundle{
		Version: bundleVersion,
		KDF: domain.KDFParams{
			Name:       crypto.KDFName,
			Iterations: s.iterations,
			KeyLen:     crypto.KeyBytes,
		},
		Salt:       salt,
		IV:         iv,
		Ciphertext: ct,
		Tag:        tag,
		Address:    addr,
	}
	b, err := json.Marshal(bundle)
	if err != nil {
		return err
	}
	if err := s.storage.Save(s.key, b); err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}
	return nil
}

func (s *Store) decodeBundle(b []byte) (domain.KeyBundle, error) {
	var bundle domain.KeyBundle
	if err := json.Unmarshal(b, &bundle); err != nil {
		return domain.KeyBundle{}, fmt.Errorf("%w: %v", domain.ErrBundleCorrupted, err)
	}
	switch {
	case bundle.Version != bundleVersion:
		return domain.KeyBundle{}, fmt.Errorf("%w: unsupported version %d", domain.ErrBundleCorrupted, bundle.Version)
	case bundle.KDF.Name != crypto.KDFName, bundle.KDF.KeyLen != crypto.KeyBytes:
		return domain.KeyBundle{}, fmt.Errorf("%w: unsupported kdf", domain.ErrBundleCorrupted)
	case bundle.KDF.Iterations < s.minIterations:
		return domain.KeyBundle{}, fmt.Errorf("%w: kdf work factor too low", domain.ErrBundleCorrupted)
	case len(bundle.Salt) != crypto.SaltBytes,
		len(bundle.IV) != crypto.NonceBytes,
		len(bundle.Tag) != crypto.TagBytes:
		return domain.KeyBundle{}, fmt.Errorf("%w: bad field length", domain.ErrBundleCorrupted)
	}
	return bundle, nil
}

// Compile-time assertion that Store implements domain.CustodyService.
var _ domain.CustodyService = (*Store)(nil)
