package minio

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/wah/blobstore"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := envOr("WAH_MINIO_ENDPOINT", "localhost:9000")
	bucket := "test-wah"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(envOr("WAH_MINIO_ACCESS_KEY", "minioadmin"), envOr("WAH_MINIO_SECRET_KEY", "minioadmin"), ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)

	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "bitmaps/test.wah", data))

	blob, err := store.Open(ctx, "bitmaps/test.wah")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	part := make([]byte, 5)
	n, err := blob.ReadAt(ctx, part, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "minio", string(part))

	tail := make([]byte, 10)
	n, err = blob.ReadAt(ctx, tail, 12)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "world", string(tail[:n]))
	require.NoError(t, blob.Close())

	got, err := blobstore.Get(ctx, store, "bitmaps/test.wah")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "bitmaps/")
	require.NoError(t, err)
	assert.Contains(t, names, "bitmaps/test.wah")

	require.NoError(t, store.Delete(ctx, "bitmaps/test.wah"))
	require.NoError(t, store.Delete(ctx, "bitmaps/test.wah"))

	_, err = store.Open(ctx, "bitmaps/test.wah")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
