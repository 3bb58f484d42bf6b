package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/shorturl/internal/logger"
	"github.com/atinyakov/shorturl/internal/metrics"
	"github.com/atinyakov/shorturl/internal/storage"
)

// maxRegisterAttempts bounds how often RegisterOrGet retries when it loses
// a race but cannot see the winner's record.
const maxRegisterAttempts = 3

// Registry owns the mapping between original URLs and short ids.
// Id allocation is delegated to the store's atomic primitive.
type Registry struct {
	storage storage.Storage
	cache   Cache
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewRegistry creates a registry. cache may be nil.
func NewRegistry(s storage.Storage, cache Cache, logger *zap.Logger, m *metrics.Metrics) *Registry {
	if m == nil {
		m = metrics.New()
	}

	return &Registry{
		storage: s,
		cache:   cache,
		logger:  logger,
		metrics: m,
	}
}

// LookupByURL finds the record for an exact original URL.
func (r *Registry) LookupByURL(ctx context.Context, originalURL string) (*storage.URLRecord, bool, error) {
	rec, err := r.storage.FindByOriginal(ctx, originalURL)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: lookup by url: %w", ErrStorage, err)
	}

	return rec, true, nil
}

// LookupByID finds the record for a short id, consulting the cache first.
func (r *Registry) LookupByID(ctx context.Context, id int64) (*storage.URLRecord, error) {
	log := logger.FromContext(ctx, r.logger)

	if id <= 0 {
		r.metrics.Lookup(metrics.LookupMiss)
		return nil, ErrNotFound
	}

	if r.cache != nil {
		rec, ok, err := r.cache.Get(ctx, id)
		if err != nil {
			log.Warn("cache get failed", zap.Int64("short_id", id), zap.Error(err))
		} else if ok {
			r.metrics.Lookup(metrics.LookupCacheHit)
			return rec, nil
		}
	}

	rec, err := r.storage.FindByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		r.metrics.Lookup(metrics.LookupMiss)
		return nil, ErrNotFound
	}
	if err != nil {
		r.metrics.Lookup(metrics.LookupError)
		return nil, fmt.Errorf("%w: lookup by id: %w", ErrStorage, err)
	}
	r.metrics.Lookup(metrics.LookupHit)

	if r.cache != nil {
		if err := r.cache.Set(ctx, rec); err != nil {
			log.Warn("cache set failed", zap.Int64("short_id", id), zap.Error(err))
		}
	}

	return rec, nil
}

// RegisterOrGet returns the record for originalURL, creating it if needed.
// created reports whether this call inserted the record. A lost insert race
// is resolved by re-reading the winner and is never reported as an error.
func (r *Registry) RegisterOrGet(ctx context.Context, originalURL string) (*storage.URLRecord, bool, error) {
	log := logger.FromContext(ctx, r.logger)

	for attempt := 1; attempt <= maxRegisterAttempts; attempt++ {
		rec, found, err := r.LookupByURL(ctx, originalURL)
		if err != nil {
			r.metrics.Registration(metrics.OutcomeError)
			return nil, false, err
		}
		if found {
			if attempt == 1 {
				r.metrics.Registration(metrics.OutcomeExisting)
			} else {
				r.metrics.Registration(metrics.OutcomeRace)
			}
			return rec, false, nil
		}

		rec, err = r.storage.Insert(ctx, originalURL)
		if err == nil {
			r.metrics.Registration(metrics.OutcomeCreated)
			log.Info("registered url", zap.Int64("short_id", rec.ShortID))
			return rec, true, nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			r.metrics.Registration(metrics.OutcomeError)
			return nil, false, fmt.Errorf("%w: insert: %w", ErrStorage, err)
		}

		log.Debug("lost registration race, re-reading winner", zap.Int("attempt", attempt))
	}

	r.metrics.Registration(metrics.OutcomeError)
	return nil, false, fmt.Errorf("%w: registration did not settle after %d attempts", ErrStorage, maxRegisterAttempts)
}
