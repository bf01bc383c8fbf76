package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"dossier/internal/crypto"
	"dossier/internal/domain"
	"dossier/internal/services/decryption"
	"dossier/internal/services/encryption"
)

// Storage backends for the key bundle.
const (
	StorageFile   = "file"
	StorageBadger = "badger"
)

// EnvPrefix is prepended to every configuration key read from the
// environment, e.g. DOSSIER_COORDINATOR_URL.
const EnvPrefix = "DOSSIER"

const configName = "config"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home              string         // data directory, e.g. $HOME/.dossier
	Storage           string         // StorageFile or StorageBadger
	KDFIterations     int            // PBKDF2 work factor for new bundles
	CoordinatorURL    string         // coordination endpoint, e.g. http://127.0.0.1:8080
	RPCURL            string         // optional chain RPC; enables registry reads
	RitualRegistry    common.Address // zero: rituals come from the coordinator
	ConditionContract common.Address
	GuardianLedger    common.Address // zero: guardian state is read from the local record
	ChainID           uint64
	RitualID          domain.RitualID
	DecryptTimeout    time.Duration
	RetryAttempts     uint64
	LogLevel          zerolog.Level
	MetricsTextfile   string       // optional; session metrics are written here on exit
	HTTP              *http.Client // optional; defaults to http.DefaultClient
}

// BindFlags registers every configuration key on fs with its default.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("home", "", "data dir (default ~/.dossier)")
	fs.String("storage", StorageFile, "key bundle storage: file or badger")
	fs.Int("kdf-iterations", crypto.DefaultKDFIterations, "PBKDF2 iterations for new key bundles")
	fs.String("coordinator-url", "", "coordination endpoint base URL (e.g. http://127.0.0.1:8080)")
	fs.String("rpc-url", "", "chain RPC endpoint for registry reads")
	fs.String("ritual-registry", "", "ritual registry contract address")
	fs.String("condition-contract", "", "contract holding the release condition")
	fs.String("guardian-ledger", "", "dossier registry contract address for guardian confirmations")
	fs.Uint64("chain-id", 1, "chain the release condition is evaluated on")
	fs.Uint32("ritual-id", 0, "threshold ritual to encrypt to")
	fs.Duration("decrypt-timeout", decryption.DefaultTimeout, "bound on a share collection session")
	fs.Uint64("retry-attempts", encryption.DefaultRetryAttempts, "retries for public key reads")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("metrics-textfile", "", "write decryption metrics to this file on exit (node_exporter textfile format)")
}

// LoadConfig resolves the configuration from fs, the environment and an
// optional config.yaml in the home directory, in that order of precedence.
func LoadConfig(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	home := v.GetString("home")
	if home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		home = filepath.Join(dir, ".dossier")
	}
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(home)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return configFrom(v, home)
}

func configFrom(v *viper.Viper, home string) (Config, error) {
	cfg := Config{
		Home:            home,
		Storage:         v.GetString("storage"),
		KDFIterations:   v.GetInt("kdf-iterations"),
		CoordinatorURL:  strings.TrimRight(v.GetString("coordinator-url"), "/"),
		RPCURL:          v.GetString("rpc-url"),
		ChainID:         v.GetUint64("chain-id"),
		RitualID:        domain.RitualID(v.GetUint32("ritual-id")),
		DecryptTimeout:  v.GetDuration("decrypt-timeout"),
		RetryAttempts:   v.GetUint64("retry-attempts"),
		MetricsTextfile: v.GetString("metrics-textfile"),
	}

	switch cfg.Storage {
	case StorageFile, StorageBadger:
	default:
		return Config{}, fmt.Errorf("storage: unknown backend %q", cfg.Storage)
	}
	if cfg.KDFIterations < crypto.MinKDFIterations {
		return Config{}, fmt.Errorf("kdf-iterations: %d is below the minimum %d", cfg.KDFIterations, crypto.MinKDFIterations)
	}
	if cfg.DecryptTimeout <= 0 {
		return Config{}, fmt.Errorf("decrypt-timeout: must be positive")
	}

	level, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return Config{}, fmt.Errorf("log-level: %w", err)
	}
	cfg.LogLevel = level

	for _, a := range []struct {
		key string
		out *common.Address
	}{
		{"ritual-registry", &cfg.RitualRegistry},
		{"condition-contract", &cfg.ConditionContract},
		{"guardian-ledger", &cfg.GuardianLedger},
	} {
		s := v.GetString(a.key)
		if s == "" {
			continue
		}
		if !common.IsHexAddress(s) {
			return Config{}, fmt.Errorf("%s: %q is not an address", a.key, s)
		}
		*a.out = common.HexToAddress(s)
	}

	if (cfg.RitualRegistry != common.Address{} || cfg.GuardianLedger != common.Address{}) && cfg.RPCURL == "" {
		return Config{}, fmt.Errorf("rpc-url: required when a registry contract is configured")
	}
	return cfg, nil
}
