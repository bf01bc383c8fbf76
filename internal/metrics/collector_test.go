package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dossier/internal/metrics"
	"dossier/internal/services/decryption"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.SessionStarted()
	c.ShareAccepted()
	c.ShareAccepted()
	c.ShareRejected("invalid_proof")
	c.SessionFinished(decryption.OutcomeSuccess, 120*time.Millisecond)

	n, err := testutil.GatherAndCount(reg,
		"dossier_decryption_sessions_started_total",
		"dossier_decryption_shares_accepted_total",
		"dossier_decryption_shares_rejected_total",
		"dossier_decryption_sessions_finished_total",
		"dossier_decryption_session_duration_seconds",
	)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assert.Equal(t, 2.0, gathered(t, reg, "dossier_decryption_shares_accepted_total"))
	assert.Equal(t, 1.0, gathered(t, reg, "dossier_decryption_sessions_finished_total"))
}

func TestCollectorDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg)
	assert.Panics(t, func() { metrics.NewCollector(reg) })
}

func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range f.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum
	}
	t.Fatalf("%s not registered", name)
	return 0
}

func TestHTTPCollectorInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewHTTPCollector(reg)
	h := c.Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/decrypt", nil))
	}
	assert.Equal(t, 3.0, gathered(t, reg, "dossier_coordination_requests_total"))
}
