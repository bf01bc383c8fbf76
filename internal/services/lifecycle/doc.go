// Package lifecycle derives a dossier's release eligibility from its
// check-in deadline and guardian confirmations.
//
// Derive, Evaluate, NewState, CheckIn and Confirm are pure. Tracker adds the
// reads: current confirmations from a guardian ledger and, optionally, the
// dossier state from a registry.
package lifecycle
