package gallery

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/internal/logging"
	"portfolio/internal/models"
)

type errSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errSink) record(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

func (s *errSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

func TestChannel_SnapshotOrderThenPending(t *testing.T) {
	docs := newFakeDocs(
		models.PhotoDocument{ID: "r0", CreatedAt: t0},
		models.PhotoDocument{ID: "r1", CreatedAt: t1},
	)
	store := NewStore()
	store.UpsertLocal(models.PhotoRecord{ID: "temp-x"})

	ch := NewChannel(docs, store, logging.Discard())
	require.NoError(t, ch.Open(context.Background()))
	defer ch.Close()

	assert.True(t, ch.Loaded())
	assert.Equal(t, []string{"r1", "r0", "temp-x"}, ids(store.Records()))
}

func TestChannel_ErrorAfterLoadKeepsState(t *testing.T) {
	docs := newFakeDocs(models.PhotoDocument{ID: "r0", CreatedAt: t0})
	store := NewStore()
	sink := &errSink{}

	ch := NewChannel(docs, store, logging.Discard(),
		WithFallback(func() []models.PhotoRecord { return []models.PhotoRecord{{ID: "sample-1"}} }),
		WithErrorSink(sink.record))
	require.NoError(t, ch.Open(context.Background()))
	defer ch.Close()

	docs.failWatchers(errors.New("permission-denied"))

	assert.Equal(t, 1, sink.len())
	assert.Equal(t, []string{"r0"}, ids(store.Records()))
}

func TestChannel_FirstLoadErrorInstallsFallback(t *testing.T) {
	docs := newFakeDocs()
	docs.watchErr = errors.New("unavailable")
	store := NewStore()
	sink := &errSink{}

	ch := NewChannel(docs, store, logging.Discard(),
		WithFallback(func() []models.PhotoRecord { return []models.PhotoRecord{{ID: "sample-1"}} }),
		WithErrorSink(sink.record))
	err := ch.Open(context.Background())

	require.Error(t, err)
	assert.False(t, ch.Loaded())
	assert.Equal(t, 1, sink.len())
	assert.Equal(t, []string{"sample-1"}, ids(store.Records()))
}

func TestChannel_MaterializeErrorIsReported(t *testing.T) {
	docs := newFakeDocs(models.PhotoDocument{ID: "r0", CreatedAt: t0})
	store := NewStore()
	sink := &errSink{}

	ch := NewChannel(docs, store, logging.Discard(), WithErrorSink(sink.record))
	require.NoError(t, ch.Open(context.Background()))
	defer ch.Close()

	docs.mu.Lock()
	docs.docs = append(docs.docs, models.PhotoDocument{CreatedAt: t1})
	docs.mu.Unlock()
	docs.emit()

	assert.Equal(t, 1, sink.len())
	assert.Equal(t, []string{"r0"}, ids(store.Records()))
}

func TestChannel_CloseReleasesOnce(t *testing.T) {
	docs := newFakeDocs(models.PhotoDocument{ID: "r0", CreatedAt: t0})
	store := NewStore()

	ch := NewChannel(docs, store, logging.Discard())
	require.NoError(t, ch.Open(context.Background()))

	ch.Close()
	ch.Close()
	assert.Equal(t, 1, docs.stops)

	// late deliveries are dropped
	ch.deliver([]models.PhotoDocument{{ID: "r9", CreatedAt: t2}})
	assert.Equal(t, []string{"r0"}, ids(store.Records()))

	assert.ErrorIs(t, ch.Open(context.Background()), ErrAlreadyOpen)
}

func TestChannel_CloseBeforeOpenReleasesOnOpen(t *testing.T) {
	docs := newFakeDocs()
	ch := NewChannel(docs, NewStore(), logging.Discard())

	ch.Close()
	require.NoError(t, ch.Open(context.Background()))
	assert.Equal(t, 1, docs.stops)
}

func TestGalleryView_FallbackPlaceholders(t *testing.T) {
	docs := newFakeDocs()
	docs.watchErr = errors.New("offline")

	v := NewGalleryView(docs, logging.Discard(), rand.New(rand.NewPCG(1, 2)))
	require.Error(t, v.Open(context.Background()))
	defer v.Close()

	photos := v.Photos()
	require.Len(t, photos, 12)
	for i, p := range photos {
		assert.Equal(t, "sample-"+strconv.Itoa(i+1), p.ID)
		assert.True(t, p.Category.Valid())
		assert.NotEqual(t, models.CategoryAll, p.Category)
		assert.True(t, p.FrameSize.Valid())
		assert.NotEmpty(t, p.Description)
		assert.Contains(t, p.Preview, "/api/placeholder/")
	}
}

func TestGalleryView_MaterializesDefaultsAndFilters(t *testing.T) {
	docs := newFakeDocs(
		models.PhotoDocument{ID: "a", Title: "Grebe", Category: models.CategoryCourtship, CreatedAt: t1},
		models.PhotoDocument{ID: "b", Title: "Wing", Category: models.CategoryFeathers, FrameSize: models.FrameWide,
			DownloadURL: "https://cdn.example/b.jpg", Description: "close", CreatedAt: t0},
	)
	v := NewGalleryView(docs, logging.Discard(), nil)
	require.NoError(t, v.Open(context.Background()))
	defer v.Close()

	all := v.Photos()
	require.Len(t, all, 2)
	assert.Equal(t, "/api/placeholder/800/600/a", all[0].Preview)
	assert.Equal(t, models.FrameMedium, all[0].FrameSize)
	assert.Equal(t, "A stunning capture showcasing the beauty of courtship photography.", all[0].Description)
	assert.Equal(t, "https://cdn.example/b.jpg", all[1].Preview)
	assert.Equal(t, models.FrameWide, all[1].FrameSize)

	v.SetQuery(Query{Category: models.CategoryFeathers})
	assert.Equal(t, []string{"b"}, ids(v.Photos()))
	v.SetQuery(Query{Category: models.CategoryAll, Search: "GREBE"})
	assert.Equal(t, []string{"a"}, ids(v.Photos()))
}

func TestChannel_StoreSubscriberMayQueryChannel(t *testing.T) {
	docs := newFakeDocs(models.PhotoDocument{ID: "r0", CreatedAt: t0})
	store := NewStore()
	ch := NewChannel(docs, store, logging.Discard())

	seen := make(chan bool, 4)
	unsub := store.Subscribe(func([]models.PhotoRecord) { seen <- ch.Loaded() })
	defer unsub()

	opened := make(chan error, 1)
	go func() { opened <- ch.Open(context.Background()) }()

	select {
	case err := <-opened:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("open blocked inside a store subscriber")
	}
	defer ch.Close()
	assert.True(t, <-seen)
}
