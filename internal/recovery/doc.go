// Package recovery renders a private key as a short word sequence for the
// user to look at.
//
// The phrase is a display artifact. Each word is picked by summing a pair of
// bytes of the exported key text modulo the word-list size, which loses
// information: many keys map to the same phrase and nothing here can turn a
// phrase back into a key. Do not present it as a restorable backup.
package recovery
