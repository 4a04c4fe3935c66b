package library

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/crate/internal/domain"
)

// Store implements domain.LibraryStore in memory.
// Mutation is expected on a single goroutine; the mutex only guards readers
// on other goroutines (checkpoints, inspection).
type Store struct {
	mu      sync.RWMutex
	records map[domain.TrackID]domain.DownloadRecord

	changeHooks hookList[func(domain.TrackID)]
	bulkHooks   hookList[func()]

	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates an empty library store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		records: make(map[domain.TrackID]domain.DownloadRecord),
		logger:  logger,
		now:     time.Now,
	}
}

// === Mutation ===

// Upsert merges patch into the record for id and emits one change notification.
func (s *Store) Upsert(id domain.TrackID, patch domain.RecordPatch) error {
	if !id.Valid() {
		s.logger.Warn("ignoring upsert with invalid track id", "trackID", int64(id))
		return fmt.Errorf("upsert track %d: %w", id, domain.ErrInvalidIdentifier)
	}

	s.mu.Lock()
	existing, ok := s.records[id]
	merged := mergeRecord(existing, ok, id, patch)
	if !ok || !sameContent(existing, merged) {
		merged.UpdatedAt = s.now()
	}
	s.records[id] = merged
	s.mu.Unlock()

	s.logger.Debug("upserted record",
		"trackID", int64(id),
		"origin", merged.Origin.Key(),
		"complete", merged.IsComplete(),
		"created", !ok,
	)
	s.notify(id)
	return nil
}

// Remove deletes the record for id and emits one change notification.
func (s *Store) Remove(id domain.TrackID) error {
	if !id.Valid() {
		return fmt.Errorf("remove track %d: %w", id, domain.ErrInvalidIdentifier)
	}

	s.mu.Lock()
	_, ok := s.records[id]
	delete(s.records, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("remove track %d: %w", id, domain.ErrRecordNotFound)
	}
	s.logger.Debug("removed record", "trackID", int64(id))
	s.notify(id)
	return nil
}

// NotifyBulk tells subscribers that records changed outside Upsert/Remove.
func (s *Store) NotifyBulk() {
	s.notifyBulk()
}

// === Queries ===

func (s *Store) Get(id domain.TrackID) (domain.DownloadRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// GetAll returns a copy of every record
func (s *Store) GetAll() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(domain.Snapshot, len(s.records))
	for id, rec := range s.records {
		snap[id] = rec
	}
	return snap
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// IDs returns all track ids in ascending order
func (s *Store) IDs() []domain.TrackID {
	s.mu.RLock()
	ids := make([]domain.TrackID, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Downloads returns completed records
func (s *Store) Downloads() []domain.DownloadRecord {
	return s.filter(func(r domain.DownloadRecord) bool { return r.IsComplete() })
}

// InFlight returns records still waiting on the worker
func (s *Store) InFlight() []domain.DownloadRecord {
	return s.filter(func(r domain.DownloadRecord) bool { return r.IsInFlight() })
}

func (s *Store) filter(keep func(domain.DownloadRecord) bool) []domain.DownloadRecord {
	s.mu.RLock()
	var out []domain.DownloadRecord
	for _, rec := range s.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].TrackID < out[j].TrackID })
	return out
}

// === Persistence boundary ===

// Load replaces the store content with doc. Keys that are not positive
// decimal integers are skipped. Emits a single bulk notification.
func (s *Store) Load(doc domain.SnapshotDocument) domain.LoadResult {
	records := make(map[domain.TrackID]domain.DownloadRecord, len(doc))
	var result domain.LoadResult
	for key, rd := range doc {
		id, err := domain.ParseTrackID(key)
		if err != nil {
			s.logger.Warn("skipping snapshot entry", "key", key, "error", err)
			result.Skipped++
			continue
		}
		records[id] = fromDocument(id, rd)
		result.Loaded++
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.logger.Info("loaded library snapshot", "loaded", result.Loaded, "skipped", result.Skipped)
	s.notifyBulk()
	return result
}

// Serialize produces the persistence document for the current content
func (s *Store) Serialize() domain.SnapshotDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := make(domain.SnapshotDocument, len(s.records))
	for id, rec := range s.records {
		doc[id.String()] = toDocument(rec)
	}
	return doc
}

// === Change hooks ===

// OnChange registers fn for per-track notifications
func (s *Store) OnChange(fn func(domain.TrackID)) (dispose func()) {
	return s.changeHooks.add(fn)
}

// OnBulkChange registers fn for bulk notifications
func (s *Store) OnBulkChange(fn func()) (dispose func()) {
	return s.bulkHooks.add(fn)
}

func (s *Store) notify(id domain.TrackID) {
	for _, fn := range s.changeHooks.snapshot() {
		fn(id)
	}
}

func (s *Store) notifyBulk() {
	for _, fn := range s.bulkHooks.snapshot() {
		fn()
	}
}

// hookList holds callbacks keyed by registration order.
type hookList[F any] struct {
	mu    sync.Mutex
	next  int
	hooks []hookEntry[F]
}

type hookEntry[F any] struct {
	id int
	fn F
}

func (l *hookList[F]) add(fn F) func() {
	l.mu.Lock()
	id := l.next
	l.next++
	l.hooks = append(l.hooks, hookEntry[F]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, h := range l.hooks {
				if h.id == id {
					l.hooks = append(l.hooks[:i:i], l.hooks[i+1:]...)
					return
				}
			}
		})
	}
}

func (l *hookList[F]) snapshot() []F {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]F, len(l.hooks))
	for i, h := range l.hooks {
		out[i] = h.fn
	}
	return out
}
