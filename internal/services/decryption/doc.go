// Package decryption runs share collection sessions.
//
// A session sends one encrypted request per ritual participant in a single
// batch, verifies responses as they arrive and combines the first t valid
// shares. Every piece of session key material is wiped when the session
// ends, whatever the outcome.
package decryption
