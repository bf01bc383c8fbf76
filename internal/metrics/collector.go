// Package metrics holds the prometheus collectors for the release engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dossier/internal/services/decryption"
)

// Collector tracks share collection sessions.
type Collector struct {
	started  prometheus.Counter
	finished *prometheus.CounterVec
	duration *prometheus.HistogramVec
	accepted prometheus.Counter
	rejected *prometheus.CounterVec
}

// NewCollector registers the session collectors on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		started: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceDossier,
			Subsystem: subsystemDecryption,
			Name:      "sessions_started_total",
			Help:      "number of share collection sessions started",
		}),
		finished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceDossier,
			Subsystem: subsystemDecryption,
			Name:      "sessions_finished_total",
			Help:      "number of share collection sessions finished, by outcome",
		}, []string{LabelOutcome}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespaceDossier,
			Subsystem: subsystemDecryption,
			Name:      "session_duration_seconds",
			Help:      "time from session start to outcome",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
		}, []string{LabelOutcome}),
		accepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceDossier,
			Subsystem: subsystemDecryption,
			Name:      "shares_accepted_total",
			Help:      "number of decryption shares that passed verification",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceDossier,
			Subsystem: subsystemDecryption,
			Name:      "shares_rejected_total",
			Help:      "number of participant replies dropped, by reason",
		}, []string{LabelReason}),
	}
}

func (c *Collector) SessionStarted() { c.started.Inc() }

func (c *Collector) SessionFinished(outcome string, elapsed time.Duration) {
	c.finished.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (c *Collector) ShareAccepted() { c.accepted.Inc() }

func (c *Collector) ShareRejected(reason string) {
	c.rejected.WithLabelValues(reason).Inc()
}

var _ decryption.Metrics = (*Collector)(nil)
