package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"wp-pump/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_CreateOrFindIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory(nil)

	first, err := m.CreateOrFind(ctx, store.KindPost, "wp:1", store.Attributes{"title": "Hello"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.NotEmpty(t, first.ID)

	again, err := m.CreateOrFind(ctx, store.KindPost, "wp:1", store.Attributes{"title": "Changed"})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.ID, again.ID)

	e, err := m.Get(ctx, store.KindPost, "wp:1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", e.Attrs["title"], "existing entities are not overwritten")

	id, ok, err := m.Find(ctx, store.KindPost, "wp:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first.ID, id)

	_, ok, err = m.Find(ctx, store.KindPage, "wp:1")
	require.NoError(t, err)
	assert.False(t, ok, "natural keys are scoped per kind")
}

func TestMemory_UniqueConflict(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory(nil)

	_, err := m.CreateOrFind(ctx, store.KindUser, "wp:1", store.Attributes{"username": "admin", "email": "a@example.com"})
	require.NoError(t, err)

	_, err = m.CreateOrFind(ctx, store.KindUser, "wp:2", store.Attributes{"username": "other", "email": "A@Example.com"})
	require.ErrorIs(t, err, store.ErrConflict)

	var ce *store.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "email", ce.Attr)
	assert.Equal(t, "wp:1", ce.OwnerKey)

	_, err = m.CreateOrFind(ctx, store.KindUser, "wp:3", store.Attributes{"username": "third", "email": ""})
	assert.NoError(t, err, "empty values are not indexed")
}

func TestMemory_Patch(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory(nil)

	assert.ErrorIs(t, m.Patch(ctx, store.KindPost, "missing", store.Attributes{"x": 1}), store.ErrNotFound)

	_, err := m.CreateOrFind(ctx, store.KindPost, "wp:1", store.Attributes{"content": "old"})
	require.NoError(t, err)
	require.NoError(t, m.Patch(ctx, store.KindPost, "wp:1", store.Attributes{"content": "new"}))

	e, err := m.Get(ctx, store.KindPost, "wp:1")
	require.NoError(t, err)
	assert.Equal(t, "new", e.Attrs["content"])
}

func TestMemory_ConcurrentCreateOrFindYieldsOneEntity(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory(nil)

	var wg sync.WaitGroup
	ids := make([]string, 32)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := m.CreateOrFind(ctx, store.KindMedia, "wp:7", store.Attributes{"n": i})
			if err == nil {
				ids[i] = res.ID
			}
		}(i)
	}
	wg.Wait()

	n, _ := m.Count(ctx, store.KindMedia)
	assert.Equal(t, 1, n)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.NewMemory(nil).CreateOrFind(ctx, store.KindPost, "k", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOverlay_DryRunLeavesBaseUntouched(t *testing.T) {
	ctx := context.Background()
	base := store.NewMemory(nil)
	existing, err := base.CreateOrFind(ctx, store.KindPost, "wp:1", store.Attributes{"title": "kept"})
	require.NoError(t, err)

	o := store.NewOverlay(base, nil)

	res, err := o.CreateOrFind(ctx, store.KindPost, "wp:1", store.Attributes{"title": "ignored"})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, existing.ID, res.ID)

	for i := 2; i <= 3; i++ {
		res, err = o.CreateOrFind(ctx, store.KindPost, fmt.Sprintf("wp:%d", i), store.Attributes{})
		require.NoError(t, err)
		assert.True(t, res.Created)
	}
	require.NoError(t, o.Patch(ctx, store.KindPost, "wp:1", store.Attributes{"title": "patched"}))
	require.NoError(t, o.Patch(ctx, store.KindPost, "wp:2", store.Attributes{"title": "patched"}))
	assert.ErrorIs(t, o.Patch(ctx, store.KindPost, "wp:9", store.Attributes{}), store.ErrNotFound)

	n, _ := base.Count(ctx, store.KindPost)
	assert.Equal(t, 1, n)
	e, err := base.Get(ctx, store.KindPost, "wp:1")
	require.NoError(t, err)
	assert.Equal(t, "kept", e.Attrs["title"])

	local, _ := o.Local().Count(ctx, store.KindPost)
	assert.Equal(t, 2, local)
}
