package types

import "errors"

var (
	// ErrKeyGeneration is returned when the key provider cannot produce a key pair.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrExport is returned when a key cannot be serialized.
	ErrExport = errors.New("key export failed")

	// ErrImport is returned for malformed key text or structurally invalid key bytes.
	ErrImport = errors.New("key import failed")

	// ErrEncryption is returned when the provider fails while encrypting.
	ErrEncryption = errors.New("encryption failed")

	// ErrDecryption covers wrong keys, corrupted or tampered ciphertext and
	// unknown version prefixes.
	ErrDecryption = errors.New("decryption failed")

	// ErrStorage is returned when the local key store cannot be read or written.
	ErrStorage = errors.New("key storage failed")

	// ErrPublish is returned when the public key publisher rejects or fails.
	ErrPublish = errors.New("public key publish failed")

	// ErrNoLocalKey is returned when no private key is stored for the user on this device.
	ErrNoLocalKey = errors.New("no local private key")

	// ErrRecipientKeyNotFound is returned when the directory has no key for a recipient.
	ErrRecipientKeyNotFound = errors.New("recipient public key not found")
)
