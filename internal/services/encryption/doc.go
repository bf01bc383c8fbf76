// Package encryption produces threshold capsules for dossiers.
//
// It fetches the ritual public key, binds the canonical release condition
// for (owner, dossier) and seals the plaintext to the ritual.
package encryption
