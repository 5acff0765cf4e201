package gallery

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"portfolio/internal/logging"
	"portfolio/internal/models"
)

// MaterializeForGallery fills the gaps the public gallery cannot render.
func MaterializeForGallery(doc models.PhotoDocument) (models.PhotoRecord, error) {
	rec := models.RecordFromDocument(doc)
	if rec.Preview == "" {
		rec.Preview = fmt.Sprintf("/api/placeholder/800/600/%s", doc.ID)
	}
	if !rec.FrameSize.Valid() {
		rec.FrameSize = models.FrameMedium
	}
	if rec.Description == "" {
		rec.Description = defaultDescription(rec.Category)
	}
	return rec, nil
}

// GalleryView is the public, read-only gallery. When its very first load
// fails it shows generated placeholder photos.
type GalleryView struct {
	store   *Store
	channel *Channel

	mu    sync.RWMutex
	query Query
}

func NewGalleryView(docs DocumentStore, log logging.Logger, rng *rand.Rand, opts ...ChannelOption) *GalleryView {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	store := NewStore()
	base := []ChannelOption{
		WithMaterializer(MaterializeForGallery),
		WithFallback(func() []models.PhotoRecord { return Placeholders(rng) }),
	}
	return &GalleryView{
		store:   store,
		channel: NewChannel(docs, store, log.With("view", "gallery"), append(base, opts...)...),
		query:   Query{Category: models.CategoryAll},
	}
}

func (v *GalleryView) Open(ctx context.Context) error {
	return v.channel.Open(ctx)
}

func (v *GalleryView) Close() {
	v.channel.Close()
}

func (v *GalleryView) Store() *Store {
	return v.store
}

func (v *GalleryView) SetQuery(q Query) {
	v.mu.Lock()
	v.query = q
	v.mu.Unlock()
}

func (v *GalleryView) Query() Query {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.query
}

// Photos is the filtered projection of the current state.
func (v *GalleryView) Photos() []models.PhotoRecord {
	return Filter(v.store.Records(), v.Query())
}
