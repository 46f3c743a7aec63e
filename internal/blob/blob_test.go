package blob_test

import (
	"context"
	"testing"

	"wp-pump/internal/blob"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFS(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/legacy/2024/01/photo.jpg", []byte("jpeg"), 0o644))
	return fs
}

func TestFileStore_StoreFile(t *testing.T) {
	ctx := context.Background()
	fs := newFS(t)
	s := blob.NewFileStore(fs, "/legacy", "/media")

	ref, err := s.StoreFile(ctx, "2024/01/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "uploads/2024/01/photo.jpg", ref)

	data, err := afero.ReadFile(fs, "/media/uploads/2024/01/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	again, err := s.StoreFile(ctx, "/2024/01/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, ref, again, "the reference is stable")
}

func TestFileStore_NotFound(t *testing.T) {
	s := blob.NewFileStore(newFS(t), "/legacy", "/media")

	_, err := s.StoreFile(context.Background(), "2024/02/missing.png")
	assert.ErrorIs(t, err, blob.ErrNotFound)

	_, err = s.Stat(context.Background(), "2024")
	assert.ErrorIs(t, err, blob.ErrNotFound, "directories are not files")
}

func TestFileStore_StatWritesNothing(t *testing.T) {
	fs := newFS(t)
	s := blob.NewFileStore(fs, "/legacy", "/media")

	ref, err := s.Stat(context.Background(), "2024/01/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "uploads/2024/01/photo.jpg", ref)

	exists, err := afero.Exists(fs, "/media/uploads/2024/01/photo.jpg")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	s := blob.NewFileStore(newFS(t), "/legacy", "/media")
	_, err := s.StoreFile(context.Background(), "../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, blob.ErrNotFound)
}
