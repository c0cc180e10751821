package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"whisperkey/internal/crypto"
)

const (
	// The current supported version of the encrypted blob format stored on disk.
	keystoreFormatVersion = 1

	saltBytes = 16

	sealContext = "whisperkey/keystore"
)

// Returned when the passphrase is incorrect or the ciphertext has been modified / corrupted.
var errWrongPassphrase = errors.New("wrong passphrase or corrupted key file")

// blob is the on‑disk JSON structure holding the ciphertext and KDF parameters.
type blob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

// Tunables for scrypt key derivation.
type scryptParams struct{ N, r, p int }

func scryptParamsDefault() scryptParams { return scryptParams{N: 1 << 15, r: 8, p: 1} }

// seal derives a key from passphrase and encrypts raw into a JSON blob.
func seal(passphrase string, raw []byte, kdf scryptParams) ([]byte, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt, kdf.N, kdf.r, kdf.p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ct := aead.Seal(nil, nonce, raw, associatedData(salt))

	return json.Marshal(blob{
		V:      keystoreFormatVersion,
		Salt:   salt,
		N:      kdf.N,
		R:      kdf.r,
		P:      kdf.p,
		Nonce:  nonce,
		Cipher: ct,
	})
}

// open decrypts a blob produced by seal.
func open(passphrase string, b []byte) ([]byte, error) {
	var bl blob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, err
	}
	if bl.V > keystoreFormatVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", bl.V)
	}

	key, err := scrypt.Key([]byte(passphrase), bl.Salt, bl.N, bl.R, bl.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(bl.Nonce) != aead.NonceSize() {
		return nil, errWrongPassphrase
	}
	pt, err := aead.Open(nil, bl.Nonce, bl.Cipher, associatedData(bl.Salt))
	if err != nil {
		return nil, errWrongPassphrase
	}
	return pt, nil
}

// associatedData binds the ciphertext to its salt and format.
func associatedData(salt []byte) []byte {
	ad := make([]byte, 0, len(sealContext)+len(salt))
	ad = append(ad, sealContext...)
	return append(ad, salt...)
}
