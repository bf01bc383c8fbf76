package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dossier/internal/chain"
	"dossier/internal/coordination"
	"dossier/internal/domain"
	"dossier/internal/metrics"
	"dossier/internal/threshold"
)

const shutdownTimeout = 10 * time.Second

var (
	listen       string
	ritualID     uint32
	quorum       int
	participants int
	rps          float64
	burst        int
	latency      time.Duration
	slow         []int
	badShare     []int
	garbage      []int
	refuse       []int
	rpcURL       string
	chainID      uint64
	logLevel     string
)

func main() {
	root := &cobra.Command{
		Use:          "coordinator",
		Short:        "Development coordination endpoint with simulated ritual nodes",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	f := root.Flags()
	f.StringVar(&listen, "listen", ":8080", "listen address")
	f.Uint32Var(&ritualID, "ritual-id", 0, "identifier of the simulated ritual")
	f.IntVarP(&quorum, "threshold", "t", 3, "decryption shares required")
	f.IntVarP(&participants, "participants", "n", 5, "ritual size")
	f.Float64Var(&rps, "rps", 20, "requests per second admitted")
	f.IntVar(&burst, "burst", 40, "request burst admitted")
	f.DurationVar(&latency, "latency", 0, "delay applied to --slow participants")
	f.IntSliceVar(&slow, "slow", nil, "participant indices delayed by --latency")
	f.IntSliceVar(&badShare, "bad-share", nil, "participant indices returning invalid shares")
	f.IntSliceVar(&garbage, "garbage", nil, "participant indices returning undecryptable responses")
	f.IntSliceVar(&refuse, "refuse", nil, "participant indices refusing every request")
	f.StringVar(&rpcURL, "rpc-url", "", "chain RPC used to evaluate release conditions")
	f.Uint64Var(&chainID, "chain-id", 1, "chain the nodes evaluate conditions on")
	f.StringVar(&logLevel, "log-level", "info", "log level")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	gate := threshold.AllowAll
	if rpcURL != "" {
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			return err
		}
		defer client.Close()
		gate = chain.NewConditionGate(client, chainID)
	} else {
		log.Warn().Msg("no --rpc-url: nodes release without evaluating conditions")
	}

	faults := make(map[int]threshold.Fault)
	for fault, indices := range map[threshold.Fault][]int{
		threshold.FaultBadShare: badShare,
		threshold.FaultGarbage:  garbage,
		threshold.FaultRefuse:   refuse,
	} {
		for _, i := range indices {
			faults[i] = fault
		}
	}

	ritual, err := threshold.Simulate(domain.RitualID(ritualID), quorum, participants, gate, faults, log)
	if err != nil {
		return err
	}
	local := coordination.NewLocal(log)
	local.Add(ritual)
	for _, i := range slow {
		if i < 0 || i >= len(ritual.Nodes) {
			return errors.New("--slow: participant index out of range")
		}
		local.SetLatency(ritual.Nodes[i].Participant().ID(), latency)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	instrument := metrics.NewHTTPCollector(reg)

	srv := coordination.NewServer(local,
		coordination.WithRateLimit(rps, burst),
		coordination.WithHandler("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		coordination.WithServerLogger(log),
	)
	hs := &http.Server{
		Addr:              listen,
		Handler:           instrument.Instrument(srv.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", listen).
			Uint32("ritual_id", ritualID).
			Int("threshold", quorum).
			Int("participants", participants).
			Msg("coordinator listening")
		if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
