package service

import (
	"context"

	"github.com/atinyakov/shorturl/internal/storage"
)

// URLServiceIface is what the transport layer needs from the service.
type URLServiceIface interface {
	Shorten(ctx context.Context, rawURL string) (*storage.URLRecord, bool, error)
	Resolve(ctx context.Context, id int64) (*storage.URLRecord, error)
	PingContext(ctx context.Context) error
}

// HostResolver is satisfied by *net.Resolver.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Cache holds resolved records by short id.
type Cache interface {
	Get(ctx context.Context, id int64) (*storage.URLRecord, bool, error)
	Set(ctx context.Context, rec *storage.URLRecord) error
}

// Validator checks a raw URL before it reaches the registry.
type Validator interface {
	Validate(ctx context.Context, rawURL string) (string, error)
}
