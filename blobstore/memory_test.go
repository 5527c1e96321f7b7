package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	t.Run("OpenMissing", func(t *testing.T) {
		_, err := store.Open(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("PutAndOpen", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "a", []byte{1, 2, 3}))

		b, err := store.Open(ctx, "a")
		require.NoError(t, err)
		defer b.Close()

		assert.Equal(t, int64(3), b.Size())

		data, err := ReadAll(b)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, data)
	})

	t.Run("CreateCommitsOnClose", func(t *testing.T) {
		w, err := store.Create(ctx, "b")
		require.NoError(t, err)

		_, err = w.Write([]byte("xy"))
		require.NoError(t, err)

		_, err = store.Open(ctx, "b")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, w.Close())

		b, err := store.Open(ctx, "b")
		require.NoError(t, err)
		require.NoError(t, b.Close())
	})

	t.Run("OpenIsolatedFromPut", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "c", []byte{9}))

		b, err := store.Open(ctx, "c")
		require.NoError(t, err)
		defer b.Close()

		require.NoError(t, store.Put(ctx, "c", []byte{7}))

		data, err := ReadAll(b)
		require.NoError(t, err)
		assert.Equal(t, []byte{9}, data)
	})

	t.Run("List", func(t *testing.T) {
		names, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, names, 3)

		names, err = store.List(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, names)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "a"))

		_, err := store.Open(ctx, "a")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
