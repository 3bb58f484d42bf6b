package storage

import (
	"context"
	"sync"
	"time"
)

var _ Storage = (*MemoryStorage)(nil)

// MemoryStorage keeps records in process memory.
// The id sequence is guarded by the same lock as the maps, so allocation
// and the uniqueness check happen in one critical section.
type MemoryStorage struct {
	mu     sync.RWMutex
	byURL  map[string]int64
	byID   map[int64]URLRecord
	lastID int64
}

func CreateMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byURL: make(map[string]int64),
		byID:  make(map[int64]URLRecord),
	}
}

func (m *MemoryStorage) Insert(ctx context.Context, originalURL string) (*URLRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byURL[originalURL]; exists {
		return nil, ErrConflict
	}

	m.lastID++
	r := URLRecord{
		ShortID:     m.lastID,
		OriginalURL: originalURL,
		CreatedAt:   time.Now().UTC(),
	}
	m.byURL[originalURL] = r.ShortID
	m.byID[r.ShortID] = r

	return &r, nil
}

func (m *MemoryStorage) FindByOriginal(ctx context.Context, originalURL string) (*URLRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.byURL[originalURL]
	if !exists {
		return nil, ErrNotFound
	}
	r := m.byID[id]

	return &r, nil
}

func (m *MemoryStorage) FindByID(ctx context.Context, id int64) (*URLRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, exists := m.byID[id]
	if !exists {
		return nil, ErrNotFound
	}

	return &r, nil
}

func (m *MemoryStorage) PingContext(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStorage) Close() error {
	return nil
}
