package custody_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"dossier/internal/crypto"
	"dossier/internal/custody"
	"dossier/internal/domain"
	"dossier/internal/store"
)

const testIterations = 64

func newStore(t testing.TB) (*custody.Store, *store.MemorySecureStorage) {
	storage := store.NewMemorySecureStorage()
	return custody.New(storage, custody.WithUnsafeIterations(testIterations)), storage
}

func strongSecret() *rapid.Generator[string] {
	return rapid.StringMatching(`[0-9]{6}`).Filter(func(s string) bool {
		same, up, down := true, true, true
		for i := 1; i < len(s); i++ {
			d := int(s[i]) - int(s[i-1])
			same = same && d == 0
			up = up && d == 1
			down = down && d == -1
		}
		return !(same || up || down)
	})
}

func TestCreateUnlock_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s, _ := newStore(t)
		secret := strongSecret().Draw(rt, "secret")

		addr, err := s.Create(secret)
		require.NoError(rt, err)

		key, err := s.Unlock(secret)
		require.NoError(rt, err)
		defer crypto.WipeSigningKey(key)
		require.Equal(rt, addr, crypto.AddressOf(key))

		stored, err := s.Address()
		require.NoError(rt, err)
		require.Equal(rt, addr, stored)
	})
}

func TestUnlock_WrongSecretNeverAccepted(t *testing.T) {
	s, _ := newStore(t)
	const secret = "482915"
	_, err := s.Create(secret)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(6841))
	for i := 0; i < 10_000; i++ {
		other := fmt.Sprintf("%06d", rng.Intn(1_000_000))
		if other == secret {
			continue
		}
		_, err := s.Unlock(other)
		if !errors.Is(err, domain.ErrWrongSecret) {
			t.Fatalf("trial %d: secret %s: got %v, want ErrWrongSecret", i, other, err)
		}
	}
}

func TestCreate_SecretPolicy(t *testing.T) {
	cases := []struct {
		secret string
		want   error
	}{
		{"12345", domain.ErrInvalidSecret},
		{"1234567", domain.ErrInvalidSecret},
		{"12a456", domain.ErrInvalidSecret},
		{"１２３４５６", domain.ErrInvalidSecret},
		{"000000", domain.ErrWeakSecret},
		{"777777", domain.ErrWeakSecret},
		{"123456", domain.ErrWeakSecret},
		{"456789", domain.ErrWeakSecret},
		{"987654", domain.ErrWeakSecret},
		{"543210", domain.ErrWeakSecret},
		{"135790", nil},
		{"112233", nil},
	}
	for _, tc := range cases {
		t.Run(tc.secret, func(t *testing.T) {
			s, _ := newStore(t)
			_, err := s.Create(tc.secret)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, domain.KindWeakSecret, domain.KindOf(err))
		})
	}
}

func TestCreate_ExistingBundle(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.Create("246810")
	require.NoError(t, err)

	_, err = s.Create("135790")
	assert.ErrorIs(t, err, domain.ErrBundleExists)
}

func TestUnlock_NoBundle(t *testing.T) {
	s, _ := newStore(t)

	_, err := s.Unlock("246810")
	assert.ErrorIs(t, err, domain.ErrNoBundle)

	_, err = s.Address()
	assert.ErrorIs(t, err, domain.ErrNoBundle)

	ok, err := s.Exists()
	require.NoError(t, err)
	assert.False(t, ok)
}

func tamper(t *testing.T, storage *store.MemorySecureStorage, edit func(m map[string]any)) {
	t.Helper()
	b, ok, err := storage.Load(custody.BundleKey)
	require.NoError(t, err)
	require.True(t, ok)

	m := map[string]any{}
	require.NoError(t, json.Unmarshal(b, &m))
	edit(m)
	b, err = json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, storage.Save(custody.BundleKey, b))
}

func TestUnlock_CorruptedBundle(t *testing.T) {
	cases := map[string]struct {
		edit func(m map[string]any)
		want error
	}{
		"address swapped": {
			edit: func(m map[string]any) {
				m["address"] = common.HexToAddress("0x000000000000000000000000000000000000dead").Hex()
			},
			want: domain.ErrBundleCorrupted,
		},
		"short salt": {
			edit: func(m map[string]any) { m["salt"] = "AAAA" },
			want: domain.ErrBundleCorrupted,
		},
		"lowered work factor": {
			edit: func(m map[string]any) {
				m["kdf"].(map[string]any)["iterations"] = testIterations - 1
			},
			want: domain.ErrBundleCorrupted,
		},
		"unknown version": {
			edit: func(m map[string]any) { m["version"] = 9 },
			want: domain.ErrBundleCorrupted,
		},
		"ciphertext flipped": {
			edit: func(m map[string]any) {
				var ct []byte
				b, _ := json.Marshal(m["ciphertext"])
				_ = json.Unmarshal(b, &ct)
				ct[0] ^= 0x01
				m["ciphertext"] = ct
			},
			want: domain.ErrWrongSecret,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, storage := newStore(t)
			_, err := s.Create("246810")
			require.NoError(t, err)

			tamper(t, storage, tc.edit)

			_, err = s.Unlock("246810")
			assert.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("not json", func(t *testing.T) {
		s, storage := newStore(t)
		require.NoError(t, storage.Save(custody.BundleKey, []byte("{")))
		_, err := s.Unlock("246810")
		assert.ErrorIs(t, err, domain.ErrBundleCorrupted)
	})
}

func TestChangeSecret(t *testing.T) {
	s, storage := newStore(t)
	addr, err := s.Create("246810")
	require.NoError(t, err)
	before, _, _ := storage.Load(custody.BundleKey)

	err = s.ChangeSecret("135790", "975318")
	require.ErrorIs(t, err, domain.ErrWrongSecret)
	after, _, _ := storage.Load(custody.BundleKey)
	assert.Equal(t, before, after, "failed change must not touch the bundle")

	require.ErrorIs(t, s.ChangeSecret("246810", "111111"), domain.ErrWeakSecret)

	require.NoError(t, s.ChangeSecret("246810", "975318"))

	_, err = s.Unlock("246810")
	assert.ErrorIs(t, err, domain.ErrWrongSecret)

	key, err := s.Unlock("975318")
	require.NoError(t, err)
	assert.Equal(t, addr, crypto.AddressOf(key))
}

func TestReset(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.Create("246810")
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	require.NoError(t, s.Reset())

	_, err = s.Unlock("246810")
	assert.ErrorIs(t, err, domain.ErrNoBundle)

	_, err = s.Create("246810")
	assert.NoError(t, err)
}

func TestConcurrentUnlockDuringChange(t *testing.T) {
	s, _ := newStore(t)
	addr, err := s.Create("246810")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			secret := "246810"
			if i%2 == 1 {
				secret = "975318"
			}
			key, err := s.Unlock(secret)
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrWrongSecret)
				return
			}
			assert.Equal(t, addr, crypto.AddressOf(key))
		}(i)
	}
	require.NoError(t, s.ChangeSecret("246810", "975318"))
	wg.Wait()
}

func TestWithIterations_EnforcesMinimum(t *testing.T) {
	storage := store.NewMemorySecureStorage()
	s := custody.New(storage, custody.WithIterations(10), custody.WithStorageKey("min-check"))
	_, err := s.Create("246810")
	require.NoError(t, err)

	b, _, err := storage.Load("min-check")
	require.NoError(t, err)
	var bundle domain.KeyBundle
	require.NoError(t, json.Unmarshal(b, &bundle))
	assert.Equal(t, crypto.MinKDFIterations, bundle.KDF.Iterations)
	assert.Len(t, bundle.Salt, crypto.SaltBytes)
	assert.Len(t, bundle.IV, crypto.NonceBytes)
	assert.Len(t, bundle.Tag, crypto.TagBytes)
	assert.NotContains(t, string(b), "246810")
}
