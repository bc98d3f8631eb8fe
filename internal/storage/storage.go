package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("storage: object not found")
	ErrInvalidKey   = errors.New("storage: invalid key")
	ErrAccessDenied = errors.New("storage: access denied")
)

const (
	FolderOriginal  = "original"
	FolderOptimized = "optimized"
)

type Storage interface {
	// Put stores the object under a freshly generated key inside folder and
	// returns that key. Keys carry a random component, so an existing object
	// is never overwritten.
	Put(ctx context.Context, data io.Reader, name, contentType, folder string, size int64) (string, error)
	Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetPresignedURL(ctx context.Context, key string, expirySeconds int) (string, error)
	HealthCheck(ctx context.Context) error
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

// ObjectKey builds "folder/<uuid>-<name>" for a new object.
func ObjectKey(folder, name string) string {
	return fmt.Sprintf("%s/%s-%s", folder, uuid.New().String(), name)
}
