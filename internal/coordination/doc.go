// Package coordination talks to the coordination endpoint that fans
// decryption requests out to ritual participants.
//
// HTTPClient implements both domain.Coordinator and domain.RitualSource over
// HTTP:
//   - POST /decrypt submits one batch of encrypted requests and reads the
//     replies as an NDJSON stream, one line per participant, or as a single
//     JSON document once all participants answered.
//   - GET /rituals/{id} returns a ritual's public key, threshold and
//     participants.
//
// Local is an in-process coordinator over simulated nodes, used by tests and
// by the development coordinator. Server exposes a Local over the same HTTP
// API, behind a rate limiter.
//
// Non-2xx statuses are returned as errors carrying the method, path and
// status text.
package coordination
