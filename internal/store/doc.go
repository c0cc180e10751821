// Package store provides device-local persistence for private key records.
//
// Every store implements domain.PersistentKeyStore and keeps at most one
// record per user: Put replaces whatever was stored for that user before.
// PutIfAbsent writes only when no record exists yet, which lets separate
// processes agree on a single first key. All stores are safe for
// concurrent use; the file and SQLite stores also across processes.
//
// The package includes:
//   - MemoryKeyStore, for tests and throwaway sessions
//   - FileKeyStore, a JSON file under the configured home directory,
//     written atomically and optionally sealed with a passphrase
//     (scrypt + XChaCha20-Poly1305)
//   - SQLiteKeyStore, a single-table SQLite database
//
// Failures wrap domain.ErrStorage.
package store
