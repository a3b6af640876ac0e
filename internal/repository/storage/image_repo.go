package storage

import (
	"context"
	"io"
)

// ImageRepository defines the interface for profile picture storage
type ImageRepository interface {
	// Upload stores the object and returns its object path
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, objectPath string) error
	// URL returns the public URL an object is served from
	URL(objectPath string) string
	// ObjectPath returns the object path behind a URL produced by URL
	ObjectPath(url string) (string, bool)
}
