package gallery

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"portfolio/internal/watermark"
)

const blobScheme = "blob:"

type blob struct {
	data        []byte
	contentType string
}

// Blobs holds the bytes of locally selected files behind ephemeral blob:
// references until they are no longer previewed.
type Blobs struct {
	mu sync.RWMutex
	m  map[string]blob
}

func NewBlobs() *Blobs {
	return &Blobs{m: make(map[string]blob)}
}

func (b *Blobs) Register(data []byte, contentType string) string {
	ref := blobScheme + uuid.NewString()
	b.mu.Lock()
	b.m[ref] = blob{data: data, contentType: contentType}
	b.mu.Unlock()
	return ref
}

func (b *Blobs) Get(ref string) ([]byte, string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.m[ref]
	return v.data, v.contentType, ok
}

func (b *Blobs) Release(ref string) {
	b.mu.Lock()
	delete(b.m, ref)
	b.mu.Unlock()
}

func (b *Blobs) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.m)
}

func IsBlobRef(locator string) bool {
	return strings.HasPrefix(locator, blobScheme)
}

// Resolver loads the bytes behind any preview locator.
type Resolver struct {
	blobs   *Blobs
	fetcher Fetcher
}

func NewResolver(blobs *Blobs, fetcher Fetcher) *Resolver {
	return &Resolver{blobs: blobs, fetcher: fetcher}
}

func (r *Resolver) Load(ctx context.Context, locator string) ([]byte, error) {
	const op = "gallery.Resolver.Load"

	switch {
	case IsBlobRef(locator):
		data, _, ok := r.blobs.Get(locator)
		if !ok {
			return nil, fmt.Errorf("%s: %s released", op, locator)
		}
		return data, nil
	case strings.HasPrefix(locator, "data:"):
		data, _, err := watermark.DecodeDataURI(locator)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return data, nil
	case locator == "":
		return nil, fmt.Errorf("%s: empty locator", op)
	default:
		if r.fetcher == nil {
			return nil, fmt.Errorf("%s: no fetcher for %s", op, locator)
		}
		data, err := r.fetcher.Fetch(ctx, locator)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return data, nil
	}
}
