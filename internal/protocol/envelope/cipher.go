package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"io"

	"whisperkey/internal/crypto"
	"whisperkey/internal/domain"
)

const (
	// MaxDirectPlaintext is the largest UTF-8 message, in bytes, sent as v1.
	// It equals the OAEP/SHA-256 limit for a 2048-bit modulus (256 - 2*32 - 2).
	MaxDirectPlaintext = 190

	// AESKeySize is the size of the per-message AES-256 key in bytes.
	AESKeySize = 32
	// AESNonceSize is the size of the AES-GCM nonce in bytes.
	AESNonceSize = 12
)

// randReader is the random source for AES keys and nonces.
// It can be overridden for testing.
var randReader io.Reader = rand.Reader

// Encrypt encrypts message for the holder of recipient's private key.
func Encrypt(message string, recipient *rsa.PublicKey) (string, error) {
	if recipient == nil {
		return "", fmt.Errorf("%w: nil recipient key", domain.ErrEncryption)
	}
	plaintext := []byte(message)

	var (
		ct  Ciphertext
		err error
	)
	if len(plaintext) <= MaxDirectPlaintext {
		ct, err = sealDirect(recipient, plaintext)
	} else {
		ct, err = sealHybrid(recipient, plaintext)
	}
	if err != nil {
		return "", err
	}
	return Encode(ct), nil
}

// Decrypt recovers the message from a v1 or v2 ciphertext.
func Decrypt(ciphertext string, priv *rsa.PrivateKey) (string, error) {
	if priv == nil {
		return "", fmt.Errorf("%w: nil private key", domain.ErrDecryption)
	}
	parsed, err := Parse(ciphertext)
	if err != nil {
		return "", err
	}

	var plaintext []byte
	switch c := parsed.(type) {
	case Direct:
		plaintext, err = openDirect(priv, c)
	case Hybrid:
		plaintext, err = openHybrid(priv, c)
	default:
		return "", fmt.Errorf("%w: unsupported ciphertext %T", domain.ErrDecryption, parsed)
	}
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func sealDirect(pub *rsa.PublicKey, plaintext []byte) (Direct, error) {
	sealed, err := wrap(pub, plaintext)
	if err != nil {
		return Direct{}, err
	}
	return Direct{Sealed: sealed}, nil
}

func openDirect(priv *rsa.PrivateKey, c Direct) ([]byte, error) {
	return unwrap(priv, c.Sealed)
}

func sealHybrid(pub *rsa.PublicKey, plaintext []byte) (Hybrid, error) {
	key := make([]byte, AESKeySize)
	defer crypto.Wipe(key)
	if _, err := io.ReadFull(randReader, key); err != nil {
		return Hybrid{}, fmt.Errorf("%w: aes key: %w", domain.ErrEncryption, err)
	}
	nonce := make([]byte, AESNonceSize)
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return Hybrid{}, fmt.Errorf("%w: nonce: %w", domain.ErrEncryption, err)
	}

	aead, err := newGCM(key, len(nonce))
	if err != nil {
		return Hybrid{}, fmt.Errorf("%w: %w", domain.ErrEncryption, err)
	}
	sealed := aead.Seal(nil, nonce, plaintext, nil)

	wrapped, err := wrap(pub, key)
	if err != nil {
		return Hybrid{}, err
	}
	return Hybrid{WrappedKey: wrapped, Nonce: nonce, Sealed: sealed}, nil
}

func openHybrid(priv *rsa.PrivateKey, c Hybrid) ([]byte, error) {
	key, err := unwrap(priv, c.WrappedKey)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: unwrapped key is %d bytes, want %d", domain.ErrDecryption, len(key), AESKeySize)
	}

	aead, err := newGCM(key, len(c.Nonce))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecryption, err)
	}
	plaintext, err := aead.Open(nil, c.Nonce, c.Sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", domain.ErrDecryption)
	}
	return plaintext, nil
}

// wrap is RSA-OAEP with SHA-256 for both the digest and MGF1, empty label.
func wrap(pub *rsa.PublicKey, msg []byte) ([]byte, error) {
	out, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: oaep: %w", domain.ErrEncryption, err)
	}
	return out, nil
}

func unwrap(priv *rsa.PrivateKey, ct []byte) ([]byte, error) {
	out, err := rsa.DecryptOAEP(sha256.New(), nil, priv, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: oaep: %w", domain.ErrDecryption, err)
	}
	return out, nil
}

func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if nonceSize == AESNonceSize {
		return cipher.NewGCM(block)
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}
