// Package main runs a development coordination endpoint backed by simulated
// ritual nodes. It deals a fresh t-of-n ritual at startup, so capsules
// committed against it are only decryptable while the process lives.
//
// HTTP API
//
//	GET /rituals/{id}
//	    Return the ritual: threshold, public key and the participants with
//	    their request encryption keys.
//
//	POST /decrypt
//	    Fan a batch of per-participant encrypted requests out to the nodes.
//	    With "Accept: application/x-ndjson" each reply is streamed as one
//	    JSON line the moment its node answers; otherwise a single
//	    {encrypted_responses, errors} document is returned when all nodes
//	    are done.
//
//	GET /metrics
//	    Prometheus metrics for the endpoint.
//
// Behaviour
//
//   - Nodes evaluate the release condition against --rpc-url when given and
//     release unconditionally otherwise.
//   - --bad-share, --garbage and --refuse make the listed participant
//     indices misbehave; --slow delays the listed participants by --latency.
//   - Requests beyond --rps (with --burst) are answered 429.
//   - The default listen address is :8080.
package main
