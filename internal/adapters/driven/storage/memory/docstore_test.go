package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := &domain.Document{FileID: "f1", Filename: "a.pdf", Status: domain.StatusQueued}
	require.NoError(t, store.Save(ctx, doc))

	got, err := store.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", got.Filename)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestDocumentStore_GetReturnsCopy(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &domain.Document{FileID: "f1", Status: domain.StatusQueued}))

	got, err := store.Get(ctx, "f1")
	require.NoError(t, err)
	got.Status = domain.StatusFailed

	again, err := store.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, again.Status)
}

func TestDocumentStore_Validation(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, nil), domain.ErrValidation)
	assert.ErrorIs(t, store.Save(ctx, &domain.Document{FileID: "x", Status: "nope"}), domain.ErrValidation)
	assert.ErrorIs(t, store.UpdateStatus(ctx, "x", driven.StatusUpdate{}), domain.ErrValidation)
}

func TestDocumentStore_NotFound(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.UpdateStatus(ctx, "missing", driven.StatusUpdate{Status: domain.StatusProcessing})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListNewestFirst(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Save(ctx, &domain.Document{FileID: "old", Status: domain.StatusQueued, CreatedAt: now.Add(-time.Minute)}))
	require.NoError(t, store.Save(ctx, &domain.Document{FileID: "new", Status: domain.StatusQueued, CreatedAt: now}))

	docs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "new", docs[0].FileID)
	assert.Equal(t, "old", docs[1].FileID)
}

func TestDocumentStore_UpdateStatusAndCount(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &domain.Document{FileID: "a", Status: domain.StatusQueued}))
	require.NoError(t, store.Save(ctx, &domain.Document{FileID: "b", Status: domain.StatusQueued}))

	require.NoError(t, store.UpdateStatus(ctx, "a", driven.StatusUpdate{
		Status: domain.StatusProcessed, PageCount: 2, ChunkCount: 5,
	}))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 5, got.ChunkCount)
	assert.Equal(t, 2, got.PageCount)

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.StatusProcessed])
	assert.Equal(t, 1, counts[domain.StatusQueued])
}

func TestDocumentStore_DeleteIdempotent(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &domain.Document{FileID: "a", Status: domain.StatusQueued}))

	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "a"))

	docs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocumentStore_ConcurrentUpdates(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &domain.Document{FileID: "a", Status: domain.StatusQueued}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.UpdateStatus(ctx, "a", driven.StatusUpdate{Status: domain.StatusProcessing, ChunkCount: n})
			_, _ = store.Get(ctx, "a")
		}(i)
	}
	wg.Wait()

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)
}
