package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"whisperkey/internal/domain"
)

// RSABits is the modulus size of every generated key pair.
const RSABits = 2048

// GenerateRSA returns a fresh 2048-bit RSA key pair for use with OAEP/SHA-256.
func GenerateRSA() (domain.KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, RSABits)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("%w: %w", domain.ErrKeyGeneration, err)
	}
	return domain.KeyPair{Public: &priv.PublicKey, Private: priv}, nil
}
