package minio

import (
	"context"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annforest/blobstore"
)

// TestIntegrationMinioStore requires a running MinIO instance; it is
// skipped when MINIO_ENDPOINT is not set.
func TestIntegrationMinioStore(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("Skipping MinIO integration test: MINIO_ENDPOINT not set")
	}

	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")
	bucket := "test-annforest"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	require.NoError(t, err)

	ctx := context.Background()

	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "indexes/")

	t.Run("CreateAndRead", func(t *testing.T) {
		w, err := store.Create(ctx, "it.anf")
		require.NoError(t, err)

		_, err = w.Write([]byte("hello minio"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		b, err := store.Open(ctx, "it.anf")
		require.NoError(t, err)
		defer b.Close()

		assert.Equal(t, int64(11), b.Size())

		data, err := blobstore.ReadAll(b)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello minio"), data)

		names, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Contains(t, names, "it.anf")

		require.NoError(t, store.Delete(ctx, "it.anf"))
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.Open(ctx, "nonexistent.anf")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})
}
