// Package app wires application dependencies for the CLI.
//
// Config is loaded from defaults, an optional YAML file and WHISPERKEY_*
// environment variables. NewWire builds the key store, directory client and
// services from it, and App binds them to the signed-in user for commands
// to use.
package app
