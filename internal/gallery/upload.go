package gallery

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio/internal/logging"
	"portfolio/internal/models"
)

const DefaultNamespace = "photos"

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrRemovedBeforePersist means the pending record was deleted while
	// its bytes were being stored; the orphaned object is removed again.
	ErrRemovedBeforePersist = errors.New("photo removed before it was persisted")
)

var acceptedExt = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// File is one selected input.
type File struct {
	Name        string
	Data        []byte
	ContentType string
}

func (f File) contentType() (string, error) {
	ct, ok := acceptedExt[strings.ToLower(path.Ext(f.Name))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, f.Name)
	}
	if f.ContentType != "" {
		return f.ContentType, nil
	}
	return ct, nil
}

type UploadResult struct {
	Name   string
	TempID string
	// ID is the durable identifier, empty when the upload did not complete.
	ID  string
	Err error
}

// Progress is told how many of the files have been placed in the store.
type Progress func(done, total int)

// StoragePath builds "<namespace>/<unix-millis>-<token>-<name>". The random
// token keeps two same-named files stored in one millisecond apart.
func StoragePath(namespace string, now time.Time, name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%d-%s-%s", namespace, now.UnixMilli(), token, base)
}

// Uploader inserts each file as a pending record and then persists it:
// bytes to object storage, a retrieval URL, a metadata document, and finally
// reconciliation to the durable identity. Failures leave the pending record
// in place and do not stop the remaining files.
type Uploader struct {
	docs      DocumentStore
	objects   ObjectStore
	store     *Store
	blobs     *Blobs
	log       logging.Logger
	namespace string
	now       func() time.Time
}

func NewUploader(docs DocumentStore, objects ObjectStore, store *Store, blobs *Blobs, log logging.Logger) *Uploader {
	return &Uploader{
		docs:      docs,
		objects:   objects,
		store:     store,
		blobs:     blobs,
		log:       log,
		namespace: DefaultNamespace,
		now:       time.Now,
	}
}

// Upload processes files one at a time in input order and returns once every
// file has been attempted.
func (u *Uploader) Upload(ctx context.Context, files []File, progress Progress) []UploadResult {
	results := make([]UploadResult, 0, len(files))
	base := u.store.Len()

	for i, f := range files {
		res := UploadResult{Name: f.Name}

		ct, err := f.contentType()
		if err != nil {
			res.Err = err
			u.log.Warn(ctx, "file rejected", "name", f.Name)
			results = append(results, res)
			continue
		}

		rec := models.PhotoRecord{
			ID:        models.NewTempID(),
			Title:     fmt.Sprintf("Photograph %d", base+i+1),
			Category:  models.Categories[0],
			FrameSize: models.FrameMedium,
			Preview:   u.blobs.Register(f.Data, ct),
		}
		res.TempID = rec.ID
		u.store.UpsertLocal(rec)
		if progress != nil {
			progress(i+1, len(files))
		}

		id, err := u.persist(ctx, rec, f, ct)
		if err != nil {
			res.Err = err
			u.log.Error(ctx, "upload failed, keeping local version",
				"op", "gallery.Uploader.Upload", "name", f.Name, "temp_id", rec.ID, "err", err)
		} else {
			res.ID = id
			u.log.Info(ctx, "photo uploaded", "id", id, "temp_id", rec.ID)
		}
		results = append(results, res)
	}
	return results
}

func (u *Uploader) persist(ctx context.Context, rec models.PhotoRecord, f File, ct string) (string, error) {
	const op = "gallery.Uploader.persist"

	key := StoragePath(u.namespace, u.now(), f.Name)
	if err := u.objects.Put(ctx, key, f.Data, ct); err != nil {
		return "", fmt.Errorf("%s: put: %w", op, err)
	}
	url, err := u.objects.URL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%s: url: %w", op, err)
	}

	// pick up edits made while the bytes were in flight
	current, ok := u.store.Get(rec.ID)
	if !ok {
		if err := u.objects.Delete(ctx, key); err != nil {
			u.log.Warn(ctx, "orphaned object", "path", key, "err", err)
		}
		u.blobs.Release(rec.Preview)
		return "", fmt.Errorf("%s: %w", op, ErrRemovedBeforePersist)
	}

	doc, err := u.docs.Add(ctx, models.PhotoDocument{
		Title:       current.Title,
		Category:    current.Category,
		Description: current.Description,
		FrameSize:   current.FrameSize,
		// the stored object is the unstamped original
		Watermarked: false,
		FileName:    key,
		DownloadURL: url,
		CreatedAt:   u.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("%s: add document: %w", op, err)
	}

	if _, err := u.store.Reconcile(rec.ID, doc.ID, Durable{
		RemoteURL: url,
		FileName:  key,
		CreatedAt: doc.CreatedAt,
	}); err != nil {
		// deleted locally between the document write and now; the next
		// snapshot still carries the document
		u.log.Warn(ctx, "pending photo vanished before reconcile", "temp_id", rec.ID, "id", doc.ID)
	}
	u.blobs.Release(rec.Preview)
	return doc.ID, nil
}
