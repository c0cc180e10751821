// Package directory is the public key registry other users consult before
// encrypting to someone.
//
// HTTPClient talks to a directory server over JSON:
//
//	PUT /keys/{user}   {"public_key": "<base64 SPKI>"}
//	GET /keys/{user}   {"user_id": "...", "public_key": "..."} or 404
//
// Memory is an in-process registry, and Handler serves any
// domain.PublicKeyDirectory over that same API. The directory only ever
// holds public keys.
package directory
