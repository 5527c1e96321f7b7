package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	t.Run("OpenMissing", func(t *testing.T) {
		_, err := store.Open(ctx, "missing.anf")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("CreateAndOpen", func(t *testing.T) {
		w, err := store.Create(ctx, "indexes/a.anf")
		require.NoError(t, err)

		_, err = w.Write([]byte("hello blob"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		b, err := store.Open(ctx, "indexes/a.anf")
		require.NoError(t, err)
		defer b.Close()

		assert.Equal(t, int64(10), b.Size())

		data, err := ReadAll(b)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello blob"), data)
	})

	t.Run("MappableZeroCopy", func(t *testing.T) {
		b, err := store.Open(ctx, "indexes/a.anf")
		require.NoError(t, err)
		defer b.Close()

		m, ok := b.(Mappable)
		require.True(t, ok)

		data, err := m.Bytes()
		require.NoError(t, err)
		assert.Equal(t, "hello blob", string(data))
	})

	t.Run("InvisibleUntilClose", func(t *testing.T) {
		w, err := store.Create(ctx, "pending.anf")
		require.NoError(t, err)

		_, err = w.Write([]byte("partial"))
		require.NoError(t, err)

		_, err = store.Open(ctx, "pending.anf")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, w.Close())

		b, err := store.Open(ctx, "pending.anf")
		require.NoError(t, err)
		require.NoError(t, b.Close())
	})

	t.Run("List", func(t *testing.T) {
		names, err := store.List(ctx, "indexes/")
		require.NoError(t, err)
		assert.Equal(t, []string{"indexes/a.anf"}, names)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "pending.anf"))
		require.NoError(t, store.Delete(ctx, "pending.anf"))

		_, err := store.Open(ctx, "pending.anf")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLocalStoreNoTempResidue(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	w, err := store.Create(ctx, "x.anf")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "leftover temp file %s", e.Name())
	}

	assert.Len(t, entries, 1)
	assert.Equal(t, "x.anf", filepath.Base(entries[0].Name()))
}
