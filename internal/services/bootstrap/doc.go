// Package bootstrap runs the session-start key check: make sure the signed-in
// user has a key pair and that its public half is in the directory.
//
// Ensure never fails the caller. Whatever goes wrong is logged and reported
// in the returned Status so the rest of the session can carry on without
// encryption.
package bootstrap
