// Package threshold implements the threshold encryption scheme used for
// capsules, over the Ed25519 group from kyber.
//
// A ritual has a public key X = xG whose secret x is Shamir-shared among n
// participants with threshold t. Encryption picks r, publishes K = rG and
// derives the data key from S = rX. Participant i answers a decryption
// request with U_i = x_i K and a DLEQ proof that log_G(V_i) = log_K(U_i),
// where V_i = x_i G is its registered public share. Any t verified U_i
// recover S by Lagrange interpolation in the exponent.
//
// Requests and responses travel encrypted under a per-pair key derived from
// an X25519 exchange between the requester's session key and the
// participant's request key.
//
// Deal and Node are a trusted dealer and a participant simulator for tests
// and the development coordinator. They are not a DKG ceremony.
package threshold
