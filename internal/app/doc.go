// Package app wires application dependencies for the CLI.
//
// LoadConfig resolves Config from cobra flags, DOSSIER_* environment
// variables and an optional config.yaml in the home directory. NewWire builds
// the concrete stores, chain and coordination clients and the high-level
// services from it, exposing them via the Wire struct for commands to use.
//
// Without an rpc-url the app runs against the coordination endpoint alone:
// rituals are read from it and dossier state comes from the local record.
package app
