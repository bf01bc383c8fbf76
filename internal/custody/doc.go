// Package custody keeps the device signing key wrapped under a short numeric
// secret.
//
// The plaintext key and the secret are never persisted. The wrapped form is a
// domain.KeyBundle stored as JSON in a domain.SecureStorage under a fixed
// application key. A Store is an explicit handle: construct one and pass it
// to whoever needs it.
package custody
