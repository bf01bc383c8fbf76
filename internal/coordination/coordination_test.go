package coordination_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dossier/internal/coordination"
	"dossier/internal/crypto"
	"dossier/internal/domain"
	"dossier/internal/threshold"
)

func simulated(t *testing.T, faults map[int]threshold.Fault) (*coordination.Local, *threshold.Ritual) {
	t.Helper()
	sim, err := threshold.Simulate(7, 2, 3, nil, faults, zerolog.Nop())
	require.NoError(t, err)
	local := coordination.NewLocal(zerolog.Nop())
	local.Add(sim)
	return local, sim
}

func batchFor(t *testing.T, sim *threshold.Ritual) domain.DecryptionBatch {
	t.Helper()
	priv, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	b := domain.DecryptionBatch{
		RitualID:  sim.Ritual.ID,
		Threshold: sim.Ritual.Threshold,
		Requests:  map[domain.ParticipantID][]byte{},
	}
	for _, p := range sim.Ritual.Participants {
		key, err := threshold.PairKey(priv, p.RequestKey, pub, p.RequestKey)
		require.NoError(t, err)
		env, err := threshold.SealRequest(key, pub, threshold.Request{RitualID: sim.Ritual.ID, K: sim.Ritual.PublicKey})
		require.NoError(t, err)
		b.Requests[p.ID()] = env
	}
	return b
}

func collect(ch <-chan domain.ParticipantReply) []domain.ParticipantReply {
	var out []domain.ParticipantReply
	for r := range ch {
		out = append(out, r)
	}
	return out
}

func TestHTTPClient_StreamedDecrypt(t *testing.T) {
	local, sim := simulated(t, map[int]threshold.Fault{1: threshold.FaultRefuse})
	srv := httptest.NewServer(coordination.NewServer(local).Handler())
	defer srv.Close()

	client := coordination.NewHTTP(srv.URL)

	ritual, err := client.Ritual(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, sim.Ritual, ritual)

	pk, err := client.PublicKey(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, sim.Ritual.PublicKey, pk)

	replies, err := client.Submit(context.Background(), batchFor(t, sim))
	require.NoError(t, err)
	got := collect(replies)
	require.Len(t, got, 3)

	var failed int
	for _, r := range got {
		if r.Err != nil {
			failed++
			assert.Equal(t, sim.Ritual.Participants[1].ID(), r.Participant)
			continue
		}
		assert.NotEmpty(t, r.Response)
	}
	assert.Equal(t, 1, failed)
}

func TestHTTPClient_BatchResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(coordination.BatchResult{
			EncryptedResponses: map[domain.ParticipantID][]byte{"0xA": []byte("share")},
			Errors:             map[domain.ParticipantID]string{"0xB": "offline"},
		})
	}))
	defer srv.Close()

	replies, err := coordination.NewHTTP(srv.URL).Submit(context.Background(), domain.DecryptionBatch{RitualID: 1})
	require.NoError(t, err)

	byID := map[domain.ParticipantID]domain.ParticipantReply{}
	for _, r := range collect(replies) {
		byID[r.Participant] = r
	}
	require.Len(t, byID, 2)
	assert.Equal(t, []byte("share"), byID["0xA"].Response)
	assert.EqualError(t, byID["0xB"].Err, "offline")
}

func TestHTTPClient_Non2xx(t *testing.T) {
	local, _ := simulated(t, nil)
	srv := httptest.NewServer(coordination.NewServer(local).Handler())
	defer srv.Close()

	_, err := coordination.NewHTTP(srv.URL).Ritual(context.Background(), 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestHTTPClient_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := coordination.NewHTTP(srv.URL, coordination.WithBreaker(2, time.Minute))
	for i := 0; i < 2; i++ {
		_, err := client.Submit(context.Background(), domain.DecryptionBatch{})
		require.Error(t, err)
	}
	_, err := client.Submit(context.Background(), domain.DecryptionBatch{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load())
}

func TestServer_RateLimited(t *testing.T) {
	local, _ := simulated(t, nil)
	srv := httptest.NewServer(coordination.NewServer(local, coordination.WithRateLimit(0.001, 1)).Handler())
	defer srv.Close()

	client := coordination.NewHTTP(srv.URL)
	_, err := client.Ritual(context.Background(), 7)
	require.NoError(t, err)
	_, err = client.Ritual(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestLocal_LatencyAndCancel(t *testing.T) {
	local, sim := simulated(t, nil)
	for _, p := range sim.Ritual.Participants {
		local.SetLatency(p.ID(), time.Hour)
	}
	ctx, cancel := context.WithCancel(context.Background())
	replies, err := local.Submit(ctx, batchFor(t, sim))
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-replies:
		assert.False(t, ok, "no replies after cancellation")
	case <-time.After(5 * time.Second):
		t.Fatal("reply channel not closed after cancellation")
	}
}
