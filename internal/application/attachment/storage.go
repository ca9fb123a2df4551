// Package attachment handles files and links attached to parts and data
// structure elements.
package attachment

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by ObjectStorage when a key does not exist
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage stores the content of uploaded attachment files.
// Implementations live in the infrastructure layer (local disk, S3).
type ObjectStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// DownloadURL returns a URL the client can fetch key from directly. An
	// empty URL means the backend cannot hand out URLs and the file has to
	// be streamed.
	DownloadURL(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Backend() string
}
