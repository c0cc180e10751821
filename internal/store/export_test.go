package store

// WithCheapKDF lowers the scrypt cost so sealed-store tests run quickly.
func WithCheapKDF() FileOption {
	return func(s *FileKeyStore) { s.kdf = scryptParams{N: 1 << 10, r: 8, p: 1} }
}
