package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"dossier/internal/chain"
	"dossier/internal/condition"
	"dossier/internal/coordination"
	"dossier/internal/custody"
	"dossier/internal/domain"
	"dossier/internal/metrics"
	"dossier/internal/services/decryption"
	"dossier/internal/services/encryption"
	"dossier/internal/services/lifecycle"
	"dossier/internal/store"
)

const dbDir = "db"

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Config     Config
	Log        zerolog.Logger
	Custody    *custody.Store
	Encoder    condition.Encoder
	Encryption *encryption.Service
	Decryption *decryption.Service
	Lifecycle  *lifecycle.Tracker
	Dossiers   domain.DossierIndex
	Capsules   domain.CapsuleStore
	HTTP       *http.Client
	Metrics    *prometheus.Registry

	closers []io.Closer
}

// NewLogger returns a console logger writing to stderr at level.
func NewLogger(level zerolog.Level) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// NewWire constructs the dependency graph from cfg.
func NewWire(ctx context.Context, cfg Config, log zerolog.Logger) (w *Wire, err error) {
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}

	w = &Wire{Config: cfg, Log: log}
	defer func() {
		if err != nil {
			_ = w.Close()
		}
	}()

	// Ensure an HTTP client is available for outbound calls
	w.HTTP = cfg.HTTP
	if w.HTTP == nil {
		w.HTTP = http.DefaultClient
	}

	// Capsules are always content-addressed in badger; the key bundle may
	// share a database with them when the badger backend is selected.
	db, err := store.OpenBadger(filepath.Join(cfg.Home, dbDir))
	if err != nil {
		return nil, fmt.Errorf("open capsule store: %w", err)
	}
	w.closers = append(w.closers, closerFunc(db.Close))
	w.Capsules = store.NewCapsuleStore(db)
	w.Dossiers = store.NewDossierFileStore(cfg.Home)

	secure, err := secureStorage(cfg, db)
	if err != nil {
		return nil, err
	}
	w.Custody = custody.New(secure,
		custody.WithIterations(cfg.KDFIterations),
		custody.WithLogger(log),
	)

	coord := coordination.NewHTTP(cfg.CoordinatorURL,
		coordination.WithHTTPClient(w.HTTP),
		coordination.WithLogger(log),
	)

	var (
		rituals     domain.RitualSource = coord
		ledger      domain.GuardianLedger
		trackerOpts = []lifecycle.Option{lifecycle.WithLogger(log)}
	)
	if cfg.RPCURL != "" {
		client, err := ethclient.DialContext(ctx, cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial rpc: %w", err)
		}
		w.closers = append(w.closers, closerFunc(func() error { client.Close(); return nil }))

		if cfg.RitualRegistry != (common.Address{}) {
			rituals = chain.NewRitualRegistry(client, cfg.RitualRegistry)
		}
		if cfg.GuardianLedger != (common.Address{}) {
			registry := chain.NewDossierRegistry(client, cfg.GuardianLedger)
			ledger = registry
			trackerOpts = append(trackerOpts, lifecycle.WithStateReader(registry))
		}
	}

	w.Encoder = condition.NewEncoder(cfg.ConditionContract, cfg.ChainID)
	w.Encryption, err = encryption.New(rituals, w.Encoder,
		encryption.WithRetry(cfg.RetryAttempts, encryption.DefaultRetryBase),
		encryption.WithCapsuleStore(w.Capsules),
		encryption.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	w.Metrics = prometheus.NewRegistry()
	w.Lifecycle = lifecycle.NewTracker(ledger, trackerOpts...)
	w.Decryption = decryption.New(rituals, coord,
		decryption.WithTimeout(cfg.DecryptTimeout),
		decryption.WithMetrics(metrics.NewCollector(w.Metrics)),
		decryption.WithRelease(w.Lifecycle, w.Capsules),
		decryption.WithLogger(log),
	)
	return w, nil
}

// Close releases the databases and connections opened by NewWire and
// flushes metrics to the configured textfile.
func (w *Wire) Close() error {
	var errs *multierror.Error
	if w.Config.MetricsTextfile != "" && w.Metrics != nil {
		if err := prometheus.WriteToTextfile(w.Config.MetricsTextfile, w.Metrics); err != nil {
			errs = multierror.Append(errs, err)
		}
		w.Metrics = nil
	}
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i].Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	w.closers = nil
	return errs.ErrorOrNil()
}

func secureStorage(cfg Config, db *badger.DB) (domain.SecureStorage, error) {
	switch cfg.Storage {
	case StorageBadger:
		return store.NewBadgerSecureStorage(db), nil
	default:
		return store.NewFileSecureStorage(filepath.Join(cfg.Home, "keys"))
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
