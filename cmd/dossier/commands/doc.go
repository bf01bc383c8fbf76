// Package commands defines the dossier CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init        Create the device signing key, protected by a 6-digit PIN
//   - address     Print the device address and its fingerprint
//   - change-pin  Re-wrap the signing key under a new PIN
//   - reset       Destroy the key bundle
//   - commit      Encrypt a file to a ritual and record the dossier
//   - check-in    Restart the check-in interval of a locally tracked dossier
//   - confirm     Record a guardian confirmation on a locally tracked dossier
//   - status      Show the release status of your dossiers
//   - release     Decrypt a releasable dossier
//
// # Implementation
//
// The root command resolves the configuration and builds a dependency graph
// (stores, chain and coordination clients, services) before any subcommand
// runs, and closes it afterwards. Failures are reported by kind only; the
// underlying error is logged at debug level.
package commands
