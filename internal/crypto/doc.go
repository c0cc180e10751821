// Package crypto exposes the key primitives used by whisperkey.
//
// Contents
//
//   - RSA-OAEP key generation (GenerateRSA)
//   - Key codec: SPKI public keys and PKCS#8 private keys to and from
//     standard base64 text (ExportPublicKey, ImportPublicKey,
//     ExportPrivateKey, ImportPrivateKey)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//   - Zeroing of key material (Wipe)
//
// # Notes
//
// Import failures always wrap domain.ErrImport and export failures wrap
// domain.ErrExport, so callers can branch with errors.Is without caring
// whether the base64, the DER or the key type was at fault.
package crypto
