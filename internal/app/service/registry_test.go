package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/atinyakov/shorturl/internal/metrics"
	"github.com/atinyakov/shorturl/internal/mocks"
	"github.com/atinyakov/shorturl/internal/storage"
)

func newMemoryRegistry() *Registry {
	return NewRegistry(storage.CreateMemoryStorage(), nil, zap.NewNop(), metrics.New())
}

func TestRegistry_Idempotence(t *testing.T) {
	r := newMemoryRegistry()
	ctx := context.Background()

	first, created, err := r.RegisterOrGet(ctx, "https://www.freecodecamp.org")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), first.ShortID)

	second, created, err := r.RegisterOrGet(ctx, "https://www.freecodecamp.org")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ShortID, second.ShortID)
	assert.Equal(t, first.OriginalURL, second.OriginalURL)
}

func TestRegistry_UniquenessAndRoundTrip(t *testing.T) {
	r := newMemoryRegistry()
	ctx := context.Background()

	urls := []string{
		"https://www.freecodecamp.org",
		"https://www.example.com",
		"https://www.example.com/",
		"HTTPS://WWW.EXAMPLE.COM",
	}

	ids := make(map[int64]string)
	for _, u := range urls {
		rec, _, err := r.RegisterOrGet(ctx, u)
		require.NoError(t, err)
		_, dup := ids[rec.ShortID]
		assert.False(t, dup, "id %d reused", rec.ShortID)
		ids[rec.ShortID] = u
	}

	for id, u := range ids {
		rec, err := r.LookupByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, u, rec.OriginalURL)
	}
}

func TestRegistry_LookupByURL(t *testing.T) {
	r := newMemoryRegistry()
	ctx := context.Background()

	_, found, err := r.LookupByURL(ctx, "https://www.example.com")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = r.RegisterOrGet(ctx, "https://www.example.com")
	require.NoError(t, err)

	rec, found, err := r.LookupByURL(ctx, "https://www.example.com")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1), rec.ShortID)
}

func TestRegistry_UnknownID(t *testing.T) {
	r := newMemoryRegistry()

	for _, id := range []int64{999999, 0, -1} {
		_, err := r.LookupByID(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotFound)
	}
}

func TestRegistry_ConcurrentSameURL(t *testing.T) {
	r := newMemoryRegistry()
	ctx := context.Background()

	const callers = 64
	var wg sync.WaitGroup
	results := make([]*storage.URLRecord, callers)
	createdCount := make([]bool, callers)

	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			rec, created, err := r.RegisterOrGet(ctx, "https://race.example.com")
			assert.NoError(t, err)
			results[i] = rec
			createdCount[i] = created
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	for i := 0; i < callers; i++ {
		require.NotNil(t, results[i])
		assert.Equal(t, results[0].ShortID, results[i].ShortID)
		assert.Equal(t, "https://race.example.com", results[i].OriginalURL)
		if createdCount[i] {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestRegistry_ConcurrentDistinctURLs(t *testing.T) {
	r := newMemoryRegistry()
	ctx := context.Background()

	const callers = 64
	var wg sync.WaitGroup
	ids := make(chan int64, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, _, err := r.RegisterOrGet(ctx, fmt.Sprintf("https://example.com/%d", i))
			if assert.NoError(t, err) {
				ids <- rec.ShortID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, callers)
}

func TestRegistry_LostRaceRefetchesWinner(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStorage(ctrl)
	r := NewRegistry(store, nil, zap.NewNop(), metrics.New())

	winner := &storage.URLRecord{ShortID: 5, OriginalURL: "https://example.com"}

	gomock.InOrder(
		store.EXPECT().FindByOriginal(gomock.Any(), "https://example.com").Return(nil, storage.ErrNotFound),
		store.EXPECT().Insert(gomock.Any(), "https://example.com").Return(nil, storage.ErrConflict),
		store.EXPECT().FindByOriginal(gomock.Any(), "https://example.com").Return(winner, nil),
	)

	rec, created, err := r.RegisterOrGet(context.Background(), "https://example.com")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner, rec)
}

func TestRegistry_ConflictWithoutVisibleWinnerIsBounded(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStorage(ctrl)
	r := NewRegistry(store, nil, zap.NewNop(), metrics.New())

	store.EXPECT().FindByOriginal(gomock.Any(), "https://example.com").
		Return(nil, storage.ErrNotFound).Times(maxRegisterAttempts)
	store.EXPECT().Insert(gomock.Any(), "https://example.com").
		Return(nil, storage.ErrConflict).Times(maxRegisterAttempts)

	_, _, err := r.RegisterOrGet(context.Background(), "https://example.com")

	assert.ErrorIs(t, err, ErrStorage)
}

func TestRegistry_StorageErrors(t *testing.T) {
	dbErr := errors.New("connection refused")

	t.Run("lookup fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStorage(ctrl)
		r := NewRegistry(store, nil, zap.NewNop(), metrics.New())

		store.EXPECT().FindByOriginal(gomock.Any(), gomock.Any()).Return(nil, dbErr)

		_, _, err := r.RegisterOrGet(context.Background(), "https://example.com")
		assert.ErrorIs(t, err, ErrStorage)
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("insert fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStorage(ctrl)
		r := NewRegistry(store, nil, zap.NewNop(), metrics.New())

		store.EXPECT().FindByOriginal(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
		store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil, dbErr)

		_, _, err := r.RegisterOrGet(context.Background(), "https://example.com")
		assert.ErrorIs(t, err, ErrStorage)
		assert.NotErrorIs(t, err, storage.ErrConflict)
	})

	t.Run("lookup by id fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStorage(ctrl)
		r := NewRegistry(store, nil, zap.NewNop(), metrics.New())

		store.EXPECT().FindByID(gomock.Any(), int64(1)).Return(nil, dbErr)

		_, err := r.LookupByID(context.Background(), 1)
		assert.ErrorIs(t, err, ErrStorage)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestRegistry_LookupByIDUsesCache(t *testing.T) {
	rec := &storage.URLRecord{ShortID: 1, OriginalURL: "https://www.freecodecamp.org"}

	t.Run("cache hit skips storage", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStorage(ctrl)
		cache := mocks.NewMockCache(ctrl)
		r := NewRegistry(store, cache, zap.NewNop(), metrics.New())

		cache.EXPECT().Get(gomock.Any(), int64(1)).Return(rec, true, nil)

		got, err := r.LookupByID(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("cache miss fills cache", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStorage(ctrl)
		cache := mocks.NewMockCache(ctrl)
		r := NewRegistry(store, cache, zap.NewNop(), metrics.New())

		gomock.InOrder(
			cache.EXPECT().Get(gomock.Any(), int64(1)).Return(nil, false, nil),
			store.EXPECT().FindByID(gomock.Any(), int64(1)).Return(rec, nil),
			cache.EXPECT().Set(gomock.Any(), rec).Return(nil),
		)

		got, err := r.LookupByID(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("cache failure falls back to storage", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStorage(ctrl)
		cache := mocks.NewMockCache(ctrl)
		r := NewRegistry(store, cache, zap.NewNop(), metrics.New())

		cache.EXPECT().Get(gomock.Any(), int64(1)).Return(nil, false, errors.New("redis down"))
		store.EXPECT().FindByID(gomock.Any(), int64(1)).Return(rec, nil)
		cache.EXPECT().Set(gomock.Any(), rec).Return(errors.New("redis down"))

		got, err := r.LookupByID(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("unknown id is not cached", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStorage(ctrl)
		cache := mocks.NewMockCache(ctrl)
		r := NewRegistry(store, cache, zap.NewNop(), metrics.New())

		cache.EXPECT().Get(gomock.Any(), int64(3)).Return(nil, false, nil)
		store.EXPECT().FindByID(gomock.Any(), int64(3)).Return(nil, storage.ErrNotFound)

		_, err := r.LookupByID(context.Background(), 3)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
