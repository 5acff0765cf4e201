package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"portfolio/internal/models"
)

type watcher struct {
	onSnapshot func([]models.PhotoDocument)
	onError    func(error)
}

type fakeDocs struct {
	mu       sync.Mutex
	docs     []models.PhotoDocument
	watchers map[int]watcher
	nextW    int
	nextID   int
	stops    int
	clock    time.Time
	autoEmit bool

	watchErr  error
	addErr    error
	updateErr error
	deleteErr error

	updates []string
	deletes []string
}

func newFakeDocs(docs ...models.PhotoDocument) *fakeDocs {
	return &fakeDocs{
		docs:     docs,
		watchers: map[int]watcher{},
		clock:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeDocs) snapshotLocked() []models.PhotoDocument {
	out := append([]models.PhotoDocument(nil), f.docs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeDocs) Watch(_ context.Context, onSnapshot func([]models.PhotoDocument), onError func(error)) (func(), error) {
	f.mu.Lock()
	if f.watchErr != nil {
		err := f.watchErr
		f.mu.Unlock()
		return nil, err
	}
	id := f.nextW
	f.nextW++
	f.watchers[id] = watcher{onSnapshot: onSnapshot, onError: onError}
	snap := f.snapshotLocked()
	f.mu.Unlock()

	onSnapshot(snap)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stops++
		delete(f.watchers, id)
	}, nil
}

func (f *fakeDocs) emit() {
	f.mu.Lock()
	snap := f.snapshotLocked()
	ws := make([]watcher, 0, len(f.watchers))
	for _, w := range f.watchers {
		ws = append(ws, w)
	}
	f.mu.Unlock()
	for _, w := range ws {
		w.onSnapshot(snap)
	}
}

func (f *fakeDocs) failWatchers(err error) {
	f.mu.Lock()
	ws := make([]watcher, 0, len(f.watchers))
	for _, w := range f.watchers {
		ws = append(ws, w)
	}
	f.mu.Unlock()
	for _, w := range ws {
		w.onError(err)
	}
}

func (f *fakeDocs) Add(_ context.Context, doc models.PhotoDocument) (models.PhotoDocument, error) {
	f.mu.Lock()
	if f.addErr != nil {
		err := f.addErr
		f.mu.Unlock()
		return models.PhotoDocument{}, err
	}
	f.nextID++
	doc.ID = fmt.Sprintf("doc-%d", f.nextID)
	f.clock = f.clock.Add(time.Second)
	doc.CreatedAt = f.clock
	f.docs = append(f.docs, doc)
	emit := f.autoEmit
	f.mu.Unlock()

	if emit {
		f.emit()
	}
	return doc, nil
}

func (f *fakeDocs) Update(_ context.Context, id string, upd models.PhotoUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, id)
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.docs {
		if f.docs[i].ID == id {
			upd.ApplyDocument(&f.docs[i])
			return nil
		}
	}
	return errors.New("no such document")
}

func (f *fakeDocs) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.docs {
		if f.docs[i].ID == id {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeDocs) get(id string) (models.PhotoDocument, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.ID == id {
			return d, true
		}
	}
	return models.PhotoDocument{}, false
}

type fakeObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	urlErr    error
	deleteErr error
	deleted   []string

	// when set, Put signals entered and waits for release
	entered chan string
	release chan struct{}
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) Put(ctx context.Context, path string, data []byte, _ string) error {
	if f.entered != nil {
		f.entered <- path
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[path] = data
	return nil
}

func (f *fakeObjects) URL(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.urlErr != nil {
		return "", f.urlErr
	}
	if _, ok := f.objects[path]; !ok {
		return "", errors.New("no such object")
	}
	return "https://cdn.example/" + path, nil
}

func (f *fakeObjects) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, path)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, path)
	return nil
}

func (f *fakeObjects) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for path, data := range f.objects {
		if "https://cdn.example/"+path == url {
			return data, nil
		}
	}
	return nil, errors.New("404")
}

type fakeAuth struct {
	mu        sync.Mutex
	user      *models.User
	password  string
	listeners map[int]func(*models.User)
	next      int
}

func newFakeAuth(password string) *fakeAuth {
	return &fakeAuth{password: password, listeners: map[int]func(*models.User){}}
}

func (f *fakeAuth) SignIn(_ context.Context, email, password string) (*models.User, error) {
	if password != f.password {
		return nil, errors.New("auth/wrong-password")
	}
	u := &models.User{ID: "u1", Email: email}
	f.mu.Lock()
	f.user = u
	ls := make([]func(*models.User), 0, len(f.listeners))
	for _, l := range f.listeners {
		ls = append(ls, l)
	}
	f.mu.Unlock()
	for _, l := range ls {
		l(u)
	}
	return u, nil
}

func (f *fakeAuth) OnAuthStateChange(fn func(*models.User)) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	u := f.user
	f.mu.Unlock()
	fn(u)
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeAuth) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func testImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(w, h, color.NRGBA{R: 30, G: 60, B: 30, A: 255})))
	return buf.Bytes()
}

func ids(records []models.PhotoRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
