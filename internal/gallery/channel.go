package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"portfolio/internal/logging"
	"portfolio/internal/models"
)

var ErrAlreadyOpen = errors.New("channel already open")

// Materializer turns a remote document into a local record.
type Materializer func(models.PhotoDocument) (models.PhotoRecord, error)

// MaterializeDocument is the plain mapping used by the admin dashboard.
func MaterializeDocument(doc models.PhotoDocument) (models.PhotoRecord, error) {
	if doc.ID == "" {
		return models.PhotoRecord{}, errors.New("document without id")
	}
	return models.RecordFromDocument(doc), nil
}

// Channel is one live subscription of a view to the remote collection. Every
// delivered snapshot replaces the durable part of the store. Errors go to
// the failure sink and leave the store as it was, except when nothing has
// loaded yet and a fallback is configured.
type Channel struct {
	docs        DocumentStore
	store       *Store
	materialize Materializer
	fallback    func() []models.PhotoRecord
	onError     func(error)
	log         logging.Logger

	// applyMu serializes store replacement against Close; mu only guards
	// the flags, so store subscribers may query the channel.
	applyMu    sync.Mutex
	mu         sync.Mutex
	opened     bool
	closed     bool
	loaded     bool
	fellBack   bool
	stop       func()
	releaseOne sync.Once
}

type ChannelOption func(*Channel)

func WithMaterializer(m Materializer) ChannelOption {
	return func(c *Channel) { c.materialize = m }
}

// WithFallback sets the records installed when the very first load fails.
func WithFallback(fn func() []models.PhotoRecord) ChannelOption {
	return func(c *Channel) { c.fallback = fn }
}

// WithErrorSink receives every subscription and materialization error.
func WithErrorSink(fn func(error)) ChannelOption {
	return func(c *Channel) { c.onError = fn }
}

func NewChannel(docs DocumentStore, store *Store, log logging.Logger, opts ...ChannelOption) *Channel {
	c := &Channel{
		docs:        docs,
		store:       store,
		materialize: MaterializeDocument,
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts the subscription. A channel opens once; reopen by creating a
// new one.
func (c *Channel) Open(ctx context.Context) error {
	const op = "gallery.Channel.Open"

	c.mu.Lock()
	if c.opened {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrAlreadyOpen)
	}
	c.opened = true
	c.mu.Unlock()

	stop, err := c.docs.Watch(ctx, c.deliver, c.fail)
	if err != nil {
		c.fail(err)
		return fmt.Errorf("%s: %w", op, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.releaseOne.Do(stop)
		return nil
	}
	c.stop = stop
	c.mu.Unlock()
	return nil
}

// Close releases the subscription exactly once. Snapshots that arrive
// afterwards are ignored.
func (c *Channel) Close() {
	c.applyMu.Lock()
	c.mu.Lock()
	c.closed = true
	stop := c.stop
	c.mu.Unlock()
	c.applyMu.Unlock()

	if stop != nil {
		c.releaseOne.Do(stop)
	}
}

func (c *Channel) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

func (c *Channel) deliver(docs []models.PhotoDocument) {
	records := make([]models.PhotoRecord, 0, len(docs))
	for _, doc := range docs {
		rec, err := c.materialize(doc)
		if err != nil {
			c.fail(fmt.Errorf("gallery.Channel: document %q: %w", doc.ID, err))
			return
		}
		records = append(records, rec)
	}

	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.loaded = true
	c.mu.Unlock()

	c.store.ReplaceAll(records)
}

func (c *Channel) fail(err error) {
	c.log.Error(context.Background(), "photo subscription failed", "err", err)
	if c.onError != nil {
		c.onError(err)
	}

	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.mu.Lock()
	if c.closed || c.loaded || c.fellBack || c.fallback == nil {
		c.mu.Unlock()
		return
	}
	c.fellBack = true
	c.mu.Unlock()

	c.store.ReplaceAll(c.fallback())
}
