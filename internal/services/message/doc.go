// Package message encrypts outgoing direct messages to a recipient's
// published public key and decrypts incoming ones with the local private key.
package message
