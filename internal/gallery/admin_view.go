package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"portfolio/internal/logging"
	"portfolio/internal/models"
	"portfolio/internal/watermark"
)

var ErrSignedOut = errors.New("sign in required")

type Mode int

const (
	ModeLogin Mode = iota
	ModeManage
)

func (m Mode) String() string {
	if m == ModeManage {
		return "manage"
	}
	return "login"
}

type AdminDeps struct {
	Auth    Authenticator
	Docs    DocumentStore
	Objects ObjectStore
	Fetcher Fetcher
	Log     logging.Logger
	// Label is stamped by Watermark; defaults to watermark.DefaultLabel.
	Label string
}

type Stats struct {
	Total       int
	Watermarked int
}

// AdminView is the photographer's dashboard. It shows a login form until a
// user is signed in; a failed first load leaves it empty.
type AdminView struct {
	auth     Authenticator
	docs     DocumentStore
	objects  ObjectStore
	store    *Store
	blobs    *Blobs
	channel  *Channel
	uploader *Uploader
	resolver *Resolver
	log      logging.Logger
	label    string

	mu        sync.RWMutex
	user      *models.User
	authErr   string
	unsubAuth func()
	closeOnce sync.Once
}

func NewAdminView(d AdminDeps, opts ...ChannelOption) *AdminView {
	log := d.Log
	if log == nil {
		log = logging.Discard()
	}
	log = log.With("view", "admin")
	label := d.Label
	if label == "" {
		label = watermark.DefaultLabel
	}

	store := NewStore()
	blobs := NewBlobs()
	base := []ChannelOption{
		WithMaterializer(MaterializeDocument),
		WithFallback(func() []models.PhotoRecord { return nil }),
	}
	return &AdminView{
		auth:     d.Auth,
		docs:     d.Docs,
		objects:  d.Objects,
		store:    store,
		blobs:    blobs,
		channel:  NewChannel(d.Docs, store, log, append(base, opts...)...),
		uploader: NewUploader(d.Docs, d.Objects, store, blobs, log),
		resolver: NewResolver(blobs, d.Fetcher),
		log:      log,
		label:    label,
	}
}

// Open follows the auth state and subscribes to the collection.
func (v *AdminView) Open(ctx context.Context) error {
	unsub := v.auth.OnAuthStateChange(func(u *models.User) {
		v.mu.Lock()
		v.user = u
		v.mu.Unlock()
	})
	v.mu.Lock()
	v.unsubAuth = unsub
	v.mu.Unlock()

	return v.channel.Open(ctx)
}

// Close releases the auth and collection subscriptions. In-flight uploads
// keep running.
func (v *AdminView) Close() {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		unsub := v.unsubAuth
		v.mu.Unlock()
		if unsub != nil {
			unsub()
		}
		v.channel.Close()
	})
}

func (v *AdminView) Store() *Store {
	return v.store
}

func (v *AdminView) User() *models.User {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.user
}

func (v *AdminView) Mode() Mode {
	if v.User() == nil {
		return ModeLogin
	}
	return ModeManage
}

// AuthError is the message shown under the login form.
func (v *AdminView) AuthError() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.authErr
}

func (v *AdminView) SignIn(ctx context.Context, email, password string) error {
	_, err := v.auth.SignIn(ctx, email, password)
	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.authErr = err.Error()
		return err
	}
	v.authErr = ""
	return nil
}

func (v *AdminView) requireUser() error {
	if v.User() == nil {
		return ErrSignedOut
	}
	return nil
}

func (v *AdminView) Photos() []models.PhotoRecord {
	return v.store.Records()
}

func (v *AdminView) Stats() Stats {
	var s Stats
	for _, r := range v.store.Records() {
		s.Total++
		if r.Watermarked {
			s.Watermarked++
		}
	}
	return s
}

func (v *AdminView) Upload(ctx context.Context, files []File, progress Progress) ([]UploadResult, error) {
	if err := v.requireUser(); err != nil {
		return nil, err
	}
	return v.uploader.Upload(ctx, files, progress), nil
}

// Update applies the edit locally first, then writes it to the remote
// document for durable records. Remote failures are logged only.
func (v *AdminView) Update(ctx context.Context, id string, upd models.PhotoUpdate) error {
	const op = "gallery.AdminView.Update"

	if err := v.requireUser(); err != nil {
		return err
	}
	rec, ok := v.store.Update(id, upd.ApplyRecord)
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if rec.Pending() {
		return nil
	}

	remote := upd
	remote.Watermarked = nil
	if remote.IsEmpty() {
		return nil
	}
	if err := v.docs.Update(ctx, id, remote); err != nil {
		v.log.Error(ctx, "error updating photo", "op", op, "id", id, "err", err)
	}
	return nil
}

// Delete removes the remote document and object on a best-effort basis and
// always removes the local record.
func (v *AdminView) Delete(ctx context.Context, id string) error {
	const op = "gallery.AdminView.Delete"

	if err := v.requireUser(); err != nil {
		return err
	}
	rec, ok := v.store.Get(id)
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	if !rec.Pending() {
		if err := v.docs.Delete(ctx, id); err != nil {
			v.log.Error(ctx, "error deleting photo document", "op", op, "id", id, "err", err)
		}
		if rec.FileName != "" {
			if err := v.objects.Delete(ctx, rec.FileName); err != nil {
				v.log.Error(ctx, "error deleting photo object", "op", op, "path", rec.FileName, "err", err)
			}
		}
	}

	v.store.Remove(id)
	if IsBlobRef(rec.Preview) {
		v.blobs.Release(rec.Preview)
	}
	return nil
}

// Watermark stamps the label onto the record's current preview and
// replaces the preview with the result. Calling it again stamps again.
func (v *AdminView) Watermark(ctx context.Context, id string) (models.PhotoRecord, error) {
	const op = "gallery.AdminView.Watermark"

	if err := v.requireUser(); err != nil {
		return models.PhotoRecord{}, err
	}
	rec, ok := v.store.Get(id)
	if !ok {
		return models.PhotoRecord{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	data, err := v.resolver.Load(ctx, rec.Preview)
	if err != nil {
		return models.PhotoRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	uri, err := watermark.Render(ctx, data, v.label)
	if err != nil {
		return models.PhotoRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	updated, ok := v.store.Update(id, func(r *models.PhotoRecord) {
		r.Preview = uri
		r.Watermarked = true
	})
	if !ok {
		return models.PhotoRecord{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return updated, nil
}

// Preview returns the bytes currently previewed for id.
func (v *AdminView) Preview(ctx context.Context, id string) ([]byte, error) {
	const op = "gallery.AdminView.Preview"

	rec, ok := v.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	data, err := v.resolver.Load(ctx, rec.Preview)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}
