// Package store provides persistence for the release engine.
//
// It contains concrete implementations of the domain storage interfaces:
//   - Secure device storage for the wrapped key bundle, either as private
//     files (FileSecureStorage), in badger (BadgerSecureStorage) or in
//     memory (MemorySecureStorage).
//   - A content-addressed capsule store (CapsuleStore) keyed by CIDv1.
//   - A JSON index of committed dossiers (DossierFileStore).
//
// All writes replace records atomically and all methods are safe for
// concurrent use.
package store
