package storage

import (
	"context"
)

// Backend is the object storage seam the container layer writes through.
// Only a local filesystem implementation exists; the interface keeps the
// container code independent of where the objects live.
type Backend interface {
	// Write writes data to the specified path
	Write(ctx context.Context, path string, data []byte) error

	// Read reads data from the specified path
	Read(ctx context.Context, path string) ([]byte, error)

	// List lists all objects with the given prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete deletes the object at the specified path
	Delete(ctx context.Context, path string) error

	// Exists checks if an object exists at the specified path
	Exists(ctx context.Context, path string) (bool, error)

	// Close closes any resources held by the backend
	Close() error
}
