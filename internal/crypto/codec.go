package crypto

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"whisperkey/internal/domain"
)

// ExportPublicKey encodes pub as base64 of its SPKI DER form.
func ExportPublicKey(pub *rsa.PublicKey) (domain.EncodedPublicKey, error) {
	if pub == nil {
		return "", fmt.Errorf("%w: nil public key", domain.ErrExport)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExport, err)
	}
	return domain.EncodedPublicKey(B64(der)), nil
}

// ImportPublicKey parses the output of ExportPublicKey.
func ImportPublicKey(encoded domain.EncodedPublicKey) (*rsa.PublicKey, error) {
	der, err := FromB64(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: public key base64: %w", domain.ErrImport, err)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %w", domain.ErrImport, err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is %T, want RSA", domain.ErrImport, key)
	}
	return pub, nil
}

// ExportPrivateKey encodes priv as base64 of its PKCS#8 DER form.
func ExportPrivateKey(priv *rsa.PrivateKey) (string, error) {
	if priv == nil {
		return "", fmt.Errorf("%w: nil private key", domain.ErrExport)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExport, err)
	}
	return B64(der), nil
}

// ImportPrivateKey parses the output of ExportPrivateKey.
func ImportPrivateKey(encoded string) (*rsa.PrivateKey, error) {
	der, err := FromB64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: private key base64: %w", domain.ErrImport, err)
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %w", domain.ErrImport, err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is %T, want RSA", domain.ErrImport, key)
	}
	return priv, nil
}

// KeyPairFromRecord rebuilds a key pair from a stored private key record.
func KeyPairFromRecord(rec domain.PrivateKeyRecord) (domain.KeyPair, error) {
	priv, err := ImportPrivateKey(rec.PrivateKey)
	if err != nil {
		return domain.KeyPair{}, err
	}
	return domain.KeyPair{Public: &priv.PublicKey, Private: priv}, nil
}
