package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobInfo describes one stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// BlobReader retrieves and inspects objects in blob storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver moves aged quote records out of the primary store into cheap
// blob storage.
type Archiver interface {
	// ArchiveQuotes uploads all quotes created before the cutoff and
	// returns the number of archived records.
	ArchiveQuotes(ctx context.Context, before time.Time) (int64, error)
}
