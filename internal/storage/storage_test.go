package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey(FolderOriginal, "photo.png")

	assert.True(t, strings.HasPrefix(key, "original/"))
	assert.True(t, strings.HasSuffix(key, "-photo.png"))

	// Keys for the same name must never collide.
	other := ObjectKey(FolderOriginal, "photo.png")
	assert.NotEqual(t, key, other)
}

func TestMemoryStorage_PutAndDownload(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	data := []byte("fake image bytes")
	key, err := store.Put(ctx, bytes.NewReader(data), "photo.png", "image/png", FolderOriginal, int64(len(data)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "original/"))

	rc, err := store.Download(ctx, key)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	ct, ok := store.GetContentType(key)
	require.True(t, ok)
	assert.Equal(t, "image/png", ct)
}

func TestMemoryStorage_DownloadMissing(t *testing.T) {
	store := NewMemoryStorage()

	_, err := store.Download(context.Background(), "original/does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorage_UploadEmptyKey(t *testing.T) {
	store := NewMemoryStorage()

	err := store.Upload(context.Background(), "", bytes.NewReader([]byte("x")), "text/plain", 1)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestMemoryStorage_Exists(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	exists, err := store.Exists(ctx, "optimized/missing")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Upload(ctx, "optimized/present", bytes.NewReader([]byte("x")), "image/jpeg", 1))

	exists, err = store.Exists(ctx, "optimized/present")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryStorage_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	require.NoError(t, store.Upload(ctx, "original/a", bytes.NewReader([]byte("x")), "image/png", 1))
	require.NoError(t, store.Delete(ctx, "original/a"))

	exists, err := store.Exists(ctx, "original/a")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting a missing key is not an error.
	assert.NoError(t, store.Delete(ctx, "original/a"))
}

func TestMemoryStorage_GetPresignedURL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	_, err := store.GetPresignedURL(ctx, "original/missing", 3600)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Upload(ctx, "original/a", bytes.NewReader([]byte("x")), "image/png", 1))

	url, err := store.GetPresignedURL(ctx, "original/a", 3600)
	require.NoError(t, err)
	assert.Contains(t, url, "original/a")
}

func TestMemoryStorage_CancelledContext(t *testing.T) {
	store := NewMemoryStorage()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Upload(ctx, "original/a", bytes.NewReader([]byte("x")), "image/png", 1)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.Download(ctx, "original/a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"missing object", minio.ErrorResponse{Code: "NoSuchKey"}, ErrNotFound},
		{"missing bucket", minio.ErrorResponse{Code: "NoSuchBucket"}, ErrNotFound},
		{"denied", minio.ErrorResponse{Code: "AccessDenied"}, ErrAccessDenied},
		{"bad credentials", minio.ErrorResponse{Code: "InvalidAccessKeyId"}, ErrAccessDenied},
		{"bad signature", minio.ErrorResponse{Code: "SignatureDoesNotMatch"}, ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapError(tt.err))
		})
	}

	// Unrecognized errors pass through untouched.
	opaque := errors.New("connection reset")
	assert.Equal(t, opaque, mapError(opaque))
}
