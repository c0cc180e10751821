package directory

import (
	"context"
	"sync"

	"whisperkey/internal/domain"
)

// Memory is a domain.PublicKeyDirectory held in process memory.
type Memory struct {
	mu   sync.RWMutex
	keys map[domain.UserID]domain.EncodedPublicKey
}

// NewMemory returns an empty registry.
func NewMemory() *Memory {
	return &Memory{keys: make(map[domain.UserID]domain.EncodedPublicKey)}
}

// FetchPublicKey returns the key stored for userID, if any.
func (m *Memory) FetchPublicKey(ctx context.Context, userID domain.UserID) (domain.EncodedPublicKey, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.keys[userID]
	return k, ok, nil
}

// PublishPublicKey stores encoded for userID, replacing any previous key.
func (m *Memory) PublishPublicKey(ctx context.Context, userID domain.UserID, encoded domain.EncodedPublicKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[userID] = encoded
	return nil
}

var _ domain.PublicKeyDirectory = (*Memory)(nil)
