package envelope

import "io"

// SetRandReader swaps the AES key/nonce source and returns a restore func.
func SetRandReader(r io.Reader) (restore func()) {
	prev := randReader
	randReader = r
	return func() { randReader = prev }
}
