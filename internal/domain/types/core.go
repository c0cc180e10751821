package types

// UserID identifies a user in the public-key directory and the local key store.
type UserID string

// String returns the string form of the user identifier.
func (u UserID) String() string { return string(u) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// EncodedPublicKey is the base64 text form of a public key's SPKI encoding,
// as published to the directory.
type EncodedPublicKey string

// String returns the encoded key text.
func (k EncodedPublicKey) String() string { return string(k) }
