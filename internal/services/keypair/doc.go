// Package keypair manages creation, persistence and first-use publication of
// the local user's RSA key pair.
//
// Initialize is the entry point on session start: it returns the stored key
// when one exists and otherwise generates a pair, persists the private half
// and publishes the public half. Concurrent first-time calls for the same
// user share a single execution, so exactly one key pair is persisted and
// exactly one public key published.
package keypair
