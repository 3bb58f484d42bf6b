// Package repository implements storage.Storage on top of PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/atinyakov/shorturl/internal/storage"
)

// originalURLConstraint is the unique constraint on url_records.original_url.
const originalURLConstraint = "url_records_original_url_key"

var _ storage.Storage = (*URLRepository)(nil)

// InitDB opens a pgx-backed connection pool, checks it and applies migrations.
func InitDB(ctx context.Context, dsn string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("Database connected and migrations applied")
	return db, nil
}

type URLRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func CreateURLRepository(db *sql.DB, logger *zap.Logger) *URLRepository {
	return &URLRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores a new record. The short id comes from the identity column,
// and a concurrent insert of the same URL surfaces as storage.ErrConflict.
func (r *URLRepository) Insert(ctx context.Context, originalURL string) (*storage.URLRecord, error) {
	rec := storage.URLRecord{OriginalURL: originalURL}

	err := r.db.QueryRowContext(ctx,
		"INSERT INTO url_records (original_url) VALUES ($1) RETURNING short_id, created_at;",
		originalURL,
	).Scan(&rec.ShortID, &rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) &&
			pgErr.Code == pgerrcode.UniqueViolation &&
			pgErr.ConstraintName == originalURLConstraint {
			r.logger.Debug("original url already registered", zap.String("url", originalURL))
			return nil, storage.ErrConflict
		}

		return nil, fmt.Errorf("insert url record: %w", err)
	}

	return &rec, nil
}

func (r *URLRepository) FindByOriginal(ctx context.Context, originalURL string) (*storage.URLRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT short_id, original_url, created_at FROM url_records WHERE original_url = $1;",
		originalURL,
	)

	return scanRecord(row)
}

func (r *URLRepository) FindByID(ctx context.Context, id int64) (*storage.URLRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT short_id, original_url, created_at FROM url_records WHERE short_id = $1;",
		id,
	)

	return scanRecord(row)
}

func (r *URLRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *URLRepository) Close() error {
	return r.db.Close()
}

func scanRecord(row *sql.Row) (*storage.URLRecord, error) {
	var rec storage.URLRecord

	err := row.Scan(&rec.ShortID, &rec.OriginalURL, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan url record: %w", err)
	}

	return &rec, nil
}
