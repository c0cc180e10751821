package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"whisperkey/internal/domain"
)

// MemoryKeyStore keeps key records in process memory only.
type MemoryKeyStore struct {
	mu      sync.RWMutex
	records map[domain.UserID]domain.PrivateKeyRecord
	now     func() time.Time
}

// NewMemoryKeyStore returns an empty MemoryKeyStore.
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{
		records: make(map[domain.UserID]domain.PrivateKeyRecord),
		now:     time.Now,
	}
}

// Get returns the record for userID and whether it exists.
func (s *MemoryKeyStore) Get(ctx context.Context, userID domain.UserID) (domain.PrivateKeyRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.PrivateKeyRecord{}, false, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	return rec, ok, nil
}

// Put stores privateKey for userID, replacing any previous record.
func (s *MemoryKeyStore) Put(ctx context.Context, userID domain.UserID, privateKey string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID] = domain.PrivateKeyRecord{
		UserID:     userID,
		PrivateKey: privateKey,
		CreatedAt:  s.now().Unix(),
	}
	return nil
}

// PutIfAbsent stores privateKey for userID unless a record already exists.
func (s *MemoryKeyStore) PutIfAbsent(
	ctx context.Context,
	userID domain.UserID,
	privateKey string,
) (domain.PrivateKeyRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.PrivateKeyRecord{}, false, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[userID]; ok {
		return rec, false, nil
	}
	rec := domain.PrivateKeyRecord{
		UserID:     userID,
		PrivateKey: privateKey,
		CreatedAt:  s.now().Unix(),
	}
	s.records[userID] = rec
	return rec, true, nil
}

// Len reports how many records are stored.
func (s *MemoryKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Compile-time assertion that MemoryKeyStore implements domain.PersistentKeyStore.
var _ domain.PersistentKeyStore = (*MemoryKeyStore)(nil)
