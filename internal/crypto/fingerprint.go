package crypto

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"whisperkey/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a public key encoding.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}

// FingerprintRSA fingerprints the SPKI encoding of pub.
func FingerprintRSA(pub *rsa.PublicKey) (domain.Fingerprint, error) {
	if pub == nil {
		return "", fmt.Errorf("%w: nil public key", domain.ErrExport)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExport, err)
	}
	return domain.Fingerprint(Fingerprint(der)), nil
}
