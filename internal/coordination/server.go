package coordination

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"dossier/internal/domain"
)

// Server exposes a Local coordinator over HTTP.
type Server struct {
	local   *Local
	limiter *rate.Limiter
	extra   map[string]http.Handler
	log     zerolog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRateLimit admits at most rps requests per second with the given burst.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) { s.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithHandler mounts h at path, e.g. a metrics handler at /metrics.
func WithHandler(path string, h http.Handler) ServerOption {
	return func(s *Server) { s.extra[path] = h }
}

// WithServerLogger sets the logger.
func WithServerLogger(log zerolog.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// NewServer returns a Server in front of local.
func NewServer(local *Local, opts ...ServerOption) *Server {
	s := &Server{
		local:   local,
		limiter: rate.NewLimiter(rate.Inf, 0),
		extra:   make(map[string]http.Handler),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "coordination-server").Logger()
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.NewRoute().Subrouter()
	api.Use(s.rateLimit)
	api.HandleFunc("/rituals/{id:[0-9]+}", s.handleRitual).Methods(http.MethodGet)
	api.HandleFunc("/decrypt", s.handleDecrypt).Methods(http.MethodPost)
	for path, h := range s.extra {
		r.Handle(path, h)
	}
	return r
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRitual(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		http.Error(w, "bad ritual id", http.StatusBadRequest)
		return
	}
	ritual, err := s.local.Ritual(r.Context(), domain.RitualID(id))
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ritual)
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var batch domain.DecryptionBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	replies, err := s.local.Submit(r.Context(), batch)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	log := s.log.With().Str("ritual_id", batch.RitualID.String()).Logger()

	flusher, canFlush := w.(http.Flusher)
	if canFlush && strings.Contains(r.Header.Get("Accept"), ContentTypeNDJSON) {
		w.Header().Set("Content-Type", ContentTypeNDJSON)
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		enc := json.NewEncoder(w)
		n := 0
		for reply := range replies {
			if err := enc.Encode(NewReplyLine(reply)); err != nil {
				log.Debug().Err(err).Msg("client went away")
				return
			}
			flusher.Flush()
			n++
		}
		log.Info().Int("replies", n).Msg("batch streamed")
		return
	}

	res := BatchResult{
		EncryptedResponses: make(map[domain.ParticipantID][]byte),
		Errors:             make(map[domain.ParticipantID]string),
	}
	for reply := range replies {
		if reply.Err != nil {
			res.Errors[reply.Participant] = reply.Err.Error()
			continue
		}
		res.EncryptedResponses[reply.Participant] = reply.Response
	}
	log.Info().Int("responses", len(res.EncryptedResponses)).Int("errors", len(res.Errors)).Msg("batch answered")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}
