// Package feed turns collection writes into live, fully materialized
// snapshots for every subscriber.
package feed

import (
	"context"
	"fmt"
	"sync"

	"portfolio/internal/logging"
	"portfolio/internal/models"
)

type Lister interface {
	ListPhotos(ctx context.Context) ([]models.PhotoDocument, error)
}

// Hub fans the ordered snapshot out to subscribers. A slow subscriber only
// ever sees the newest snapshot; intermediate ones are dropped.
type Hub struct {
	lister Lister
	log    logging.Logger

	// listMu orders list-and-deliver passes, so a subscriber registered
	// during a write still receives the snapshot that follows it.
	listMu sync.Mutex

	mu   sync.Mutex
	next uint64
	subs map[uint64]chan []models.PhotoDocument
}

func NewHub(lister Lister, log logging.Logger) *Hub {
	return &Hub{
		lister: lister,
		log:    log,
		subs:   make(map[uint64]chan []models.PhotoDocument),
	}
}

// Subscribe returns a channel primed with the current snapshot. The cancel
// func closes the channel and may be called more than once.
func (h *Hub) Subscribe(ctx context.Context) (<-chan []models.PhotoDocument, func(), error) {
	const op = "feed.Hub.Subscribe"

	h.listMu.Lock()
	defer h.listMu.Unlock()

	docs, err := h.lister.ListPhotos(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	ch := make(chan []models.PhotoDocument, 1)
	ch <- docs

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Refresh re-reads the collection and delivers it to every subscriber.
func (h *Hub) Refresh(ctx context.Context) error {
	const op = "feed.Hub.Refresh"

	h.listMu.Lock()
	defer h.listMu.Unlock()

	docs, err := h.lister.ListPhotos(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- docs
	}
	h.log.Debug(ctx, "snapshot broadcast", "subscribers", len(h.subs), "documents", len(docs))
	return nil
}
