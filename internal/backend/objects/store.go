// Package objects is the object-storage capability of the managed backend:
// complaint media in an S3-compatible bucket.
package objects

import (
	"context"
	"io"
)

// Store uploads, removes and links media objects. Paths are bucket-relative
// keys such as "<user id>/<name>.jpg".
type Store interface {
	// Upload stores body at path and returns the stored path.
	Upload(ctx context.Context, path string, body io.ReadSeeker, size int64, contentType string) (string, error)
	Remove(ctx context.Context, path string) error
	// URL returns a short-lived link for reading the object.
	URL(ctx context.Context, path string) (string, error)
}
