package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/atinyakov/shorturl/internal/storage"
)

var _ URLServiceIface = (*URLService)(nil)

// URLService validates input and delegates to the registry.
type URLService struct {
	storage   storage.Storage
	validator Validator
	registry  *Registry
	logger    *zap.Logger
}

func NewURL(s storage.Storage, validator Validator, registry *Registry, logger *zap.Logger) *URLService {
	return &URLService{
		storage:   s,
		validator: validator,
		registry:  registry,
		logger:    logger,
	}
}

func (s *URLService) PingContext(ctx context.Context) error {
	if err := s.storage.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrStorage, err)
	}
	return nil
}

// Shorten validates rawURL and registers it. Validation errors are returned
// before any storage access.
func (s *URLService) Shorten(ctx context.Context, rawURL string) (*storage.URLRecord, bool, error) {
	valid, err := s.validator.Validate(ctx, rawURL)
	if err != nil {
		return nil, false, err
	}

	return s.registry.RegisterOrGet(ctx, valid)
}

func (s *URLService) Resolve(ctx context.Context, id int64) (*storage.URLRecord, error) {
	return s.registry.LookupByID(ctx, id)
}
