package gallery

import (
	"errors"
	"sync"
	"time"

	"portfolio/internal/models"
)

var ErrNotFound = errors.New("photo not found")

// Durable carries what a pending record learns once it has been persisted.
type Durable struct {
	RemoteURL string
	FileName  string
	CreatedAt time.Time
}

// Store is the local photo state of one view. Durable records are kept in
// remote creation order (newest first); pending records live in a separate
// list in upload order, so a remote ReplaceAll never touches them.
//
// Every method is atomic. Listeners receive a copy of the ordered records
// after each change and must not mutate the store from inside the callback.
type Store struct {
	mu      sync.RWMutex
	durable []models.PhotoRecord
	pending []models.PhotoRecord
	version uint64

	notifyMu  sync.Mutex
	delivered uint64
	nextSub   int
	subs      map[int]func([]models.PhotoRecord)
}

func NewStore() *Store {
	return &Store{subs: make(map[int]func([]models.PhotoRecord))}
}

// Subscribe registers fn and returns its unsubscribe func.
func (s *Store) Subscribe(fn func([]models.PhotoRecord)) func() {
	s.notifyMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			delete(s.subs, id)
			s.notifyMu.Unlock()
		})
	}
}

func (s *Store) publish() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.RLock()
	v := s.version
	snap := s.recordsLocked()
	s.mu.RUnlock()

	// a concurrent publish already delivered this state or a newer one
	if v <= s.delivered {
		return
	}
	s.delivered = v
	for _, fn := range s.subs {
		fn(snap)
	}
}

func (s *Store) recordsLocked() []models.PhotoRecord {
	out := make([]models.PhotoRecord, 0, len(s.durable)+len(s.pending))
	out = append(out, s.durable...)
	return append(out, s.pending...)
}

// Records returns durable records newest first, then pending ones in upload order.
func (s *Store) Records() []models.PhotoRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordsLocked()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.durable) + len(s.pending)
}

func (s *Store) Get(id string) (models.PhotoRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, i := s.locateLocked(id)
	if i < 0 {
		return models.PhotoRecord{}, false
	}
	return (*list)[i], true
}

func (s *Store) locateLocked(id string) (*[]models.PhotoRecord, int) {
	list := &s.durable
	if models.IsTempID(id) {
		list = &s.pending
	}
	for i := range *list {
		if (*list)[i].ID == id {
			return list, i
		}
	}
	return list, -1
}

// insertDurableLocked keeps durable records ordered by CreatedAt descending.
// Records without a creation time go last.
func (s *Store) insertDurableLocked(rec models.PhotoRecord) {
	at := len(s.durable)
	if !rec.CreatedAt.IsZero() {
		for i, r := range s.durable {
			if r.CreatedAt.IsZero() || r.CreatedAt.Before(rec.CreatedAt) {
				at = i
				break
			}
		}
	}
	s.durable = append(s.durable, models.PhotoRecord{})
	copy(s.durable[at+1:], s.durable[at:])
	s.durable[at] = rec
}

// ReplaceAll installs a remote snapshot as the durable set. Pending records
// are kept as they are.
func (s *Store) ReplaceAll(records []models.PhotoRecord) {
	s.mu.Lock()
	s.durable = make([]models.PhotoRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, dup := seen[r.ID]; dup || models.IsTempID(r.ID) {
			continue
		}
		seen[r.ID] = struct{}{}
		s.durable = append(s.durable, r)
	}
	s.version++
	s.mu.Unlock()
	s.publish()
}

// UpsertLocal inserts rec or replaces the record with the same identifier.
func (s *Store) UpsertLocal(rec models.PhotoRecord) {
	s.mu.Lock()
	list, i := s.locateLocked(rec.ID)
	switch {
	case i >= 0:
		(*list)[i] = rec
	case rec.Pending():
		s.pending = append(s.pending, rec)
	default:
		s.insertDurableLocked(rec)
	}
	s.version++
	s.mu.Unlock()
	s.publish()
}

// Update applies fn to the record with the given id and returns the result.
func (s *Store) Update(id string, fn func(*models.PhotoRecord)) (models.PhotoRecord, bool) {
	s.mu.Lock()
	list, i := s.locateLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return models.PhotoRecord{}, false
	}
	rec := (*list)[i]
	fn(&rec)
	rec.ID = id
	(*list)[i] = rec
	s.version++
	s.mu.Unlock()
	s.publish()
	return rec, true
}

// Reconcile moves a pending record to its durable identity. Afterwards no
// record is addressable by tempID and exactly one by finalID.
func (s *Store) Reconcile(tempID, finalID string, d Durable) (models.PhotoRecord, error) {
	s.mu.Lock()
	_, i := s.locateLocked(tempID)
	if !models.IsTempID(tempID) || models.IsTempID(finalID) || i < 0 {
		s.mu.Unlock()
		return models.PhotoRecord{}, ErrNotFound
	}

	rec := s.pending[i]
	s.pending = append(s.pending[:i:i], s.pending[i+1:]...)

	rec.ID = finalID
	rec.RemoteURL = d.RemoteURL
	rec.FileName = d.FileName
	rec.CreatedAt = d.CreatedAt
	// a watermarked preview is newer than the uploaded original
	if !rec.Watermarked {
		rec.Preview = d.RemoteURL
	}

	// the snapshot carrying finalID may have arrived first
	if _, j := s.locateLocked(finalID); j >= 0 {
		s.durable[j] = rec
	} else {
		s.insertDurableLocked(rec)
	}
	s.version++
	s.mu.Unlock()
	s.publish()
	return rec, nil
}

// Remove deletes the record and reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	list, i := s.locateLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	*list = append((*list)[:i:i], (*list)[i+1:]...)
	s.version++
	s.mu.Unlock()
	s.publish()
	return true
}
