package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"whisperkey/internal/domain"
)

const (
	keysFilename       = "keys.json"
	sealedKeysFilename = "keys.json.enc"
	lockFilename       = "keys.lock"
)

// ErrWrongPassphrase is returned (wrapped in domain.ErrStorage) when a sealed
// key file cannot be opened with the configured passphrase.
var ErrWrongPassphrase = errWrongPassphrase

// FileKeyStore persists key records as a JSON map in a single file under dir.
// With a passphrase the whole file is sealed; without one it is plain JSON
// protected only by file permissions.
//
// Writers hold an advisory lock on dir/keys.lock for the whole
// read-modify-write, so separate processes sharing dir never lose updates.
type FileKeyStore struct {
	dir        string
	passphrase string
	kdf        scryptParams
	now        func() time.Time

	mu sync.Mutex
}

// FileOption configures a FileKeyStore.
type FileOption func(*FileKeyStore)

// WithPassphrase seals the key file with a key derived from passphrase.
func WithPassphrase(passphrase string) FileOption {
	return func(s *FileKeyStore) { s.passphrase = passphrase }
}

// NewFileKeyStore returns a FileKeyStore rooted at dir.
func NewFileKeyStore(dir string, opts ...FileOption) *FileKeyStore {
	s := &FileKeyStore{dir: dir, kdf: scryptParamsDefault(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the file the store reads and writes.
func (s *FileKeyStore) Path() string {
	if s.passphrase != "" {
		return filepath.Join(s.dir, sealedKeysFilename)
	}
	return filepath.Join(s.dir, keysFilename)
}

// Get returns the record for userID and whether it exists.
func (s *FileKeyStore) Get(ctx context.Context, userID domain.UserID) (domain.PrivateKeyRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.PrivateKeyRecord{}, false, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return domain.PrivateKeyRecord{}, false, err
	}
	rec, ok := records[userID]
	return rec, ok, nil
}

// Put stores privateKey for userID, replacing any previous record.
func (s *FileKeyStore) Put(ctx context.Context, userID domain.UserID, privateKey string) error {
	return s.update(ctx, func(records map[domain.UserID]domain.PrivateKeyRecord) bool {
		records[userID] = s.record(userID, privateKey)
		return true
	})
}

// PutIfAbsent stores privateKey for userID unless a record already exists,
// in this or any other process using the same directory.
func (s *FileKeyStore) PutIfAbsent(
	ctx context.Context,
	userID domain.UserID,
	privateKey string,
) (domain.PrivateKeyRecord, bool, error) {
	var (
		rec     domain.PrivateKeyRecord
		created bool
	)
	err := s.update(ctx, func(records map[domain.UserID]domain.PrivateKeyRecord) bool {
		if existing, ok := records[userID]; ok {
			rec = existing
			return false
		}
		rec = s.record(userID, privateKey)
		records[userID] = rec
		created = true
		return true
	})
	if err != nil {
		return domain.PrivateKeyRecord{}, false, err
	}
	return rec, created, nil
}

func (s *FileKeyStore) record(userID domain.UserID, privateKey string) domain.PrivateKeyRecord {
	return domain.PrivateKeyRecord{
		UserID:     userID,
		PrivateKey: privateKey,
		CreatedAt:  s.now().Unix(),
	}
}

// update runs fn on the current records under both the in-process mutex and
// the cross-process file lock, saving the result when fn reports a change.
func (s *FileKeyStore) update(ctx context.Context, fn func(map[domain.UserID]domain.PrivateKeyRecord) bool) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	release, err := lockFile(ctx, filepath.Join(s.dir, lockFilename))
	if err != nil {
		return fmt.Errorf("%w: lock %s: %w", domain.ErrStorage, s.dir, err)
	}
	defer release()

	records, err := s.load()
	if err != nil {
		return err
	}
	if !fn(records) {
		return nil
	}
	return s.save(records)
}

func (s *FileKeyStore) load() (map[domain.UserID]domain.PrivateKeyRecord, error) {
	records := make(map[domain.UserID]domain.PrivateKeyRecord)
	path := s.Path()

	if s.passphrase == "" {
		if err := readJSON(path, &records); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrStorage, path, err)
		}
		return records, nil
	}

	b, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrStorage, path, err)
	}
	if b == nil {
		return records, nil
	}
	raw, err := open(s.passphrase, b)
	if err != nil {
		if errors.Is(err, errWrongPassphrase) {
			return nil, fmt.Errorf("%w: %w", domain.ErrStorage, ErrWrongPassphrase)
		}
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrStorage, path, err)
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrStorage, path, err)
	}
	return records, nil
}

func (s *FileKeyStore) save(records map[domain.UserID]domain.PrivateKeyRecord) error {
	path := s.Path()

	if s.passphrase == "" {
		if err := writeJSON(path, records, 0o600); err != nil {
			return fmt.Errorf("%w: write %s: %w", domain.ErrStorage, path, err)
		}
		return nil
	}

	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", domain.ErrStorage, err)
	}
	sealed, err := seal(s.passphrase, raw, s.kdf)
	if err != nil {
		return fmt.Errorf("%w: seal: %w", domain.ErrStorage, err)
	}
	if err := writeFile(path, sealed, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrStorage, path, err)
	}
	return nil
}

// Compile-time assertion that FileKeyStore implements domain.PersistentKeyStore.
var _ domain.PersistentKeyStore = (*FileKeyStore)(nil)
