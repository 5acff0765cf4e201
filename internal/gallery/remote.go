// Package gallery keeps a local, always consistent view of the remote
// "photos" collection and layers optimistic uploads, edits, deletes and
// watermarking on top of it.
package gallery

import (
	"context"

	"portfolio/internal/models"
)

// DocumentStore is the remote "photos" collection.
type DocumentStore interface {
	// Watch delivers the full collection, newest first, on every change
	// until stop is called.
	Watch(ctx context.Context, onSnapshot func([]models.PhotoDocument), onError func(error)) (stop func(), err error)
	// Add stores doc and returns it with the identifier and creation time
	// assigned by the remote side.
	Add(ctx context.Context, doc models.PhotoDocument) (models.PhotoDocument, error)
	Update(ctx context.Context, id string, upd models.PhotoUpdate) error
	Delete(ctx context.Context, id string) error
}

type ObjectStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	URL(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
}

type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*models.User, error)
	// OnAuthStateChange calls fn with the current user (nil when signed
	// out) right away and again on every change.
	OnAuthStateChange(fn func(*models.User)) (unsubscribe func())
}

// Fetcher downloads remote preview URLs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
