package coordination

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"dossier/internal/domain"
)

// HTTPClient is the HTTP client for the coordination endpoint.
type HTTPClient struct {
	Base string
	HTTP *http.Client

	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.HTTP = hc }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *HTTPClient) { c.log = log }
}

// WithBreaker sets after how many consecutive failures the client stops
// calling the endpoint, and for how long.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(c *HTTPClient) { c.breaker = newBreaker(failures, cooldown) }
}

// NewHTTP returns a client for the endpoint at base.
func NewHTTP(base string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		Base:    strings.TrimRight(base, "/"),
		HTTP:    http.DefaultClient,
		breaker: newBreaker(5, 30*time.Second),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "coordination").Str("endpoint", c.Base).Logger()
	return c
}

func newBreaker(failures uint32, cooldown time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "coordination",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})
}

// Submit posts batch to /decrypt and returns the participants' replies as
// they arrive. The channel is closed when the endpoint finishes or ctx ends.
func (c *HTTPClient) Submit(ctx context.Context, batch domain.DecryptionBatch) (<-chan domain.ParticipantReply, error) {
	resp, err := c.do(ctx, http.MethodPost, "/decrypt", batch)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.ParticipantReply, len(batch.Requests))
	go func() {
		defer close(out)
		defer resp.Body.Close()

		send := func(r domain.ParticipantReply) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if isNDJSON(resp.Header.Get("Content-Type")) {
			dec := json.NewDecoder(resp.Body)
			for {
				var line ReplyLine
				if err := dec.Decode(&line); err != nil {
					if !errors.Is(err, io.EOF) && ctx.Err() == nil {
						c.log.Warn().Err(err).Msg("reply stream broken")
					}
					return
				}
				if !send(line.Reply()) {
					return
				}
			}
		}

		var res BatchResult
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			c.log.Warn().Err(err).Msg("decode batch result")
			return
		}
		for id, b := range res.EncryptedResponses {
			if !send(ReplyLine{Participant: id, EncryptedResponse: b}.Reply()) {
				return
			}
		}
		for id, msg := range res.Errors {
			if !send(ReplyLine{Participant: id, Error: msg}.Reply()) {
				return
			}
		}
	}()
	return out, nil
}

// Ritual fetches the ritual registered under id.
func (c *HTTPClient) Ritual(ctx context.Context, id domain.RitualID) (domain.Ritual, error) {
	var out domain.Ritual
	if err := c.getJSON(ctx, "/rituals/"+id.String(), &out); err != nil {
		return domain.Ritual{}, err
	}
	if out.ID != id {
		return domain.Ritual{}, fmt.Errorf("coordination: asked for ritual %s, got %s", id, out.ID)
	}
	return out, nil
}

// PublicKey fetches the public key of ritual id.
func (c *HTTPClient) PublicKey(ctx context.Context, id domain.RitualID) ([]byte, error) {
	r, err := c.Ritual(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.PublicKey, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

// do runs one request through the circuit breaker. On success the caller
// owns the response body.
func (c *HTTPClient) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return nil, err
		}
		body = buf
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.Base+path, body)
		if err != nil {
			return nil, err
		}
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", ContentTypeNDJSON+", application/json")
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode/100 != 2 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("coordination %s %s: %s", strings.ToLower(method), path, resp.Status)
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.log.Warn().Str("path", path).Msg("endpoint circuit open")
		return nil, fmt.Errorf("coordination %s %s: %w", strings.ToLower(method), path, err)
	}
	if err != nil {
		return nil, err
	}
	return out.(*http.Response), nil
}

func isNDJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == ContentTypeNDJSON
}

var (
	_ domain.Coordinator  = (*HTTPClient)(nil)
	_ domain.RitualSource = (*HTTPClient)(nil)
)
