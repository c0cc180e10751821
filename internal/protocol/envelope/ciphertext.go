package envelope

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"whisperkey/internal/domain"
)

// Version is the ciphertext format tag.
type Version string

const (
	V1 Version = "v1"
	V2 Version = "v2"
)

// headerBytes is the size of the two u16 length fields in a v2 envelope.
const headerBytes = 4

// Ciphertext is either Direct (v1) or Hybrid (v2).
type Ciphertext interface {
	Version() Version
	payload() []byte
}

// Direct is a message encrypted straight to the recipient with RSA-OAEP.
type Direct struct {
	Sealed []byte
}

// Version returns V1.
func (Direct) Version() Version { return V1 }

func (d Direct) payload() []byte { return d.Sealed }

// Hybrid is a message sealed with AES-GCM whose key is RSA-OAEP-wrapped.
type Hybrid struct {
	WrappedKey []byte
	Nonce      []byte
	Sealed     []byte // AES-GCM output, tag included
}

// Version returns V2.
func (Hybrid) Version() Version { return V2 }

func (h Hybrid) payload() []byte {
	out := make([]byte, headerBytes, headerBytes+len(h.WrappedKey)+len(h.Nonce)+len(h.Sealed))
	binary.BigEndian.PutUint16(out[0:2], uint16(len(h.WrappedKey)))
	binary.BigEndian.PutUint16(out[2:4], uint16(len(h.Nonce)))
	out = append(out, h.WrappedKey...)
	out = append(out, h.Nonce...)
	return append(out, h.Sealed...)
}

// Encode renders c in its wire form.
func Encode(c Ciphertext) string {
	return string(c.Version()) + ":" + base64.StdEncoding.EncodeToString(c.payload())
}

// Parse splits a wire ciphertext into its typed form. It does not decrypt.
func Parse(s string) (Ciphertext, error) {
	prefix, body, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("%w: missing version prefix", domain.ErrDecryption)
	}
	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %w", domain.ErrDecryption, err)
	}

	switch Version(prefix) {
	case V1:
		return Direct{Sealed: raw}, nil
	case V2:
		return parseHybrid(raw)
	default:
		return nil, fmt.Errorf("%w: unknown version %q", domain.ErrDecryption, prefix)
	}
}

func parseHybrid(raw []byte) (Hybrid, error) {
	if len(raw) < headerBytes {
		return Hybrid{}, fmt.Errorf("%w: envelope too short (%d bytes)", domain.ErrDecryption, len(raw))
	}
	keyLen := int(binary.BigEndian.Uint16(raw[0:2]))
	nonceLen := int(binary.BigEndian.Uint16(raw[2:4]))
	rest := raw[headerBytes:]
	if keyLen == 0 || nonceLen == 0 || keyLen+nonceLen > len(rest) {
		return Hybrid{}, fmt.Errorf(
			"%w: bad envelope lengths key=%d nonce=%d body=%d",
			domain.ErrDecryption, keyLen, nonceLen, len(rest),
		)
	}
	return Hybrid{
		WrappedKey: rest[:keyLen],
		Nonce:      rest[keyLen : keyLen+nonceLen],
		Sealed:     rest[keyLen+nonceLen:],
	}, nil
}
