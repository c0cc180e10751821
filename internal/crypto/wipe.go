package crypto

import "runtime"

// Wipe zeroes b. Use it on symmetric keys and passphrase-derived material
// once they are no longer needed.
func Wipe(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}
