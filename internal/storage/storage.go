// Package storage keeps photo bytes in a blob store. Object names are
// generated server side and never derived from client input.
package storage

import (
	"context"
	"errors"
	"mime"
	"path"
	"strings"
	"time"
)

// DefaultURLTTL is how long an issued retrieval URL stays valid.
const DefaultURLTTL = 60 * time.Second

var (
	// ErrNameExhausted means no free object name was found within the attempt bound.
	ErrNameExhausted = errors.New("storage: no available object name")
	// ErrInvalidName rejects names that could escape the store's namespace.
	ErrInvalidName = errors.New("storage: invalid object name")
)

// ObjectStore maps object names to bytes in a content store.
type ObjectStore interface {
	// Save writes content under name with a content type taken from the
	// extension and returns name.
	Save(ctx context.Context, name string, content []byte) (string, error)
	// Exists is true only on a confirmed hit; not-found is (false, nil).
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
	// URL issues a read-only link valid for ttl, or nil if one cannot be made.
	URL(ctx context.Context, name string, ttl time.Duration) *string
	// AvailableName returns a fresh name keeping the extension of name.
	AvailableName(ctx context.Context, name string) (string, error)
}

// ContentType infers the MIME type from the extension of name.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
