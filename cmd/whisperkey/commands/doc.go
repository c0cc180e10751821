// Package commands defines the whisperkey CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init         Ensure a key pair exists and its public key is published
//   - fingerprint  Print the public key fingerprint
//   - public-key   Print the encoded public key
//   - encrypt      Encrypt a message to a user or an explicit public key
//   - decrypt      Decrypt a message addressed to you
//   - phrase       Print the display-only recovery phrase
//
// # Implementation
//
// The root command loads the config (defaults, YAML file, WHISPERKEY_*
// environment, then flags) and builds the dependency graph before any
// subcommand runs, so handlers share one store, directory client and logger.
package commands
