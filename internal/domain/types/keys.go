package types

import "crypto/rsa"

// KeyPair holds a user's long-lived RSA-OAEP key pair. Both halves are
// generated together; the private half never leaves the device.
type KeyPair struct {
	Public  *rsa.PublicKey
	Private *rsa.PrivateKey
}

// IsZero reports whether the pair carries no key material.
func (kp KeyPair) IsZero() bool { return kp.Public == nil && kp.Private == nil }

// PrivateKeyRecord is what the local key store persists per user. PrivateKey
// is the base64 PKCS#8 text form produced by the key codec.
type PrivateKeyRecord struct {
	UserID     UserID `json:"user_id"`
	PrivateKey string `json:"private_key"`
	CreatedAt  int64  `json:"created_at"`
}

// InitResult reports the outcome of key initialization for one user.
type InitResult struct {
	KeyPair
	Generated bool // a new pair was minted by this call
	Published bool // the public key was accepted by the publisher
}
