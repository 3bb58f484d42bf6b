// Package storage defines the persisted URL record and the in-memory store.
package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record matches the lookup key.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by Insert when the original URL is already registered.
	ErrConflict = errors.New("data conflict")
)

// URLRecord maps an original URL to its numeric short id.
// Records are created once and never updated.
type URLRecord struct {
	ShortID     int64     `json:"short_id"`
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
}
