// Package main runs the in-memory public key directory used by whisperkey
// during development and tests.
//
// HTTP API
//
//	PUT /keys/{user} { "public_key": "<base64 SPKI>" }
//	    Store or replace {user}'s public key. The key must parse as an RSA
//	    public key.
//
//	GET /keys/{user}
//	    Return { "user_id": ..., "public_key": ... } or 404.
//
//	GET /metrics
//	    Prometheus metrics for the process, including
//	    whisperkey_directory_requests_total{op,result}.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - A lightweight access log records method, path, remote, status, bytes and
//     duration for each request.
//   - The default listen address is :8080.
//
// The directory only ever sees public keys.
package main
