package storage

import (
	"context"
	"io"
	"time"
)

// BlobStore is the object-storage capability handed to the service layer.
// The production implementation talks to S3; tests substitute an in-memory
// fake.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, downloadName string, expires time.Duration) (string, error)
}
