package storage

import "context"

// Storage is the persistence contract for URL records.
//
// Insert allocates the next short id with the store's own atomic primitive
// and returns ErrConflict if originalURL already has a record.
type Storage interface {
	Insert(ctx context.Context, originalURL string) (*URLRecord, error)
	FindByOriginal(ctx context.Context, originalURL string) (*URLRecord, error)
	FindByID(ctx context.Context, id int64) (*URLRecord, error)
	PingContext(ctx context.Context) error
	Close() error
}
