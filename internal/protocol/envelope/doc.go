// Package envelope implements the message cipher: encrypting a direct message
// to a recipient's RSA public key and decrypting it with the local private key.
//
// # Formats
//
// Two ciphertext formats exist, chosen by plaintext size:
//
//	v1:<base64(RSA-OAEP-SHA256(pub, message))>
//	v2:<base64(u16be(len(wk)) || u16be(len(nonce)) || wk || nonce || aesgcm)>
//
// v1 carries messages of at most MaxDirectPlaintext bytes, the OAEP/SHA-256
// ceiling for a 2048-bit modulus. Anything larger is sealed with a fresh
// AES-256-GCM key and 96-bit nonce; the raw AES key is OAEP-wrapped to the
// recipient (wk) and the GCM tag stays appended to the ciphertext.
//
// Both formats are modelled as the Ciphertext sum type (Direct, Hybrid).
// Parse and Encode are the only places that look at the text prefix.
//
// # Errors
//
// Every decryption failure wraps domain.ErrDecryption: unknown prefix, bad
// base64, truncated envelope, OAEP failure under the wrong key and GCM
// authentication failure. Encryption failures wrap domain.ErrEncryption.
package envelope
