package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPCollector instruments the coordination endpoint.
type HTTPCollector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPCollector registers the request collectors on reg.
func NewHTTPCollector(reg prometheus.Registerer) *HTTPCollector {
	f := promauto.With(reg)
	return &HTTPCollector{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceDossier,
			Subsystem: subsystemCoordination,
			Name:      "requests_total",
			Help:      "number of coordination requests, by method and status code",
		}, []string{"code", "method"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespaceDossier,
			Subsystem: subsystemCoordination,
			Name:      "request_duration_seconds",
			Help:      "time to serve a coordination request",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
	}
}

// Instrument wraps h so every request is counted and timed.
func (c *HTTPCollector) Instrument(h http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(c.duration,
		promhttp.InstrumentHandlerCounter(c.requests, h))
}
