package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mmcdole/crate/internal/domain"
)

// Bucket names
var (
	bucketRecords = []byte("records")
	bucketMeta    = []byte("meta")
)

var keySavedAt = []byte("savedAt")

// SnapshotStore implements domain.SnapshotStore using BoltDB. Each record is
// stored under its decimal track id so a checkpoint only rewrites keys.
type SnapshotStore struct {
	db     *bolt.DB
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex // Protects memory cache
	cache   map[string][]byte
	savedAt time.Time
}

// Open opens (or creates) the snapshot database for profile under baseDir.
// An empty baseDir gives a memory-only store.
func Open(baseDir, profile string, logger *slog.Logger) (*SnapshotStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SnapshotStore{
		logger: logger,
		now:    time.Now,
		cache:  make(map[string][]byte),
	}
	if baseDir == "" {
		logger.Debug("snapshot store running memory-only")
		return s, nil
	}

	dir := baseDir
	if profile != "" {
		dir = filepath.Join(baseDir, hashProfile(profile))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	s.path = filepath.Join(dir, "crate.db")
	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRecords, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	logger.Debug("opened snapshot store", "path", s.path)
	return s, nil
}

// hashProfile keeps one database per library profile
func hashProfile(profile string) string {
	normalized := strings.TrimSpace(strings.ToLower(profile))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// Path is the database file, empty in memory-only mode
func (s *SnapshotStore) Path() string { return s.path }

func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save replaces the persisted snapshot with doc in one transaction
func (s *SnapshotStore) Save(doc domain.SnapshotDocument) error {
	encoded := make(map[string][]byte, len(doc))
	for key, rec := range doc {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", key, err)
		}
		encoded[key] = data
	}
	savedAt := s.now()

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketRecords)
			var stale [][]byte
			b.ForEach(func(k, _ []byte) error {
				if _, keep := encoded[string(k)]; !keep {
					stale = append(stale, append([]byte(nil), k...))
				}
				return nil
			})
			for _, k := range stale {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
			for key, data := range encoded {
				if err := b.Put([]byte(key), data); err != nil {
					return err
				}
			}
			ts := strconv.FormatInt(savedAt.UnixMilli(), 10)
			return tx.Bucket(bucketMeta).Put(keySavedAt, []byte(ts))
		})
		if err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}

	s.mu.Lock()
	s.cache = encoded
	s.savedAt = savedAt
	s.mu.Unlock()

	s.logger.Debug("saved snapshot", "records", len(encoded))
	return nil
}

// Load reads the persisted snapshot. Records that fail to decode are skipped.
func (s *SnapshotStore) Load() (domain.SnapshotDocument, error) {
	raw := make(map[string][]byte)
	if s.db == nil {
		s.mu.RLock()
		for k, v := range s.cache {
			raw[k] = v
		}
		s.mu.RUnlock()
	} else {
		err := s.db.View(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
				data := make([]byte, len(v))
				copy(data, v)
				raw[string(k)] = data
				return nil
			})
		})
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		s.mu.Lock()
		s.cache = raw
		s.mu.Unlock()
	}

	doc := make(domain.SnapshotDocument, len(raw))
	for key, data := range raw {
		var rec domain.RecordDocument
		if err := json.Unmarshal(data, &rec); err != nil {
			s.logger.Warn("skipping unreadable record", "key", key, "error", err)
			continue
		}
		doc[key] = rec
	}
	return doc, nil
}

// SavedAt returns when the snapshot was last saved
func (s *SnapshotStore) SavedAt() (time.Time, bool) {
	s.mu.RLock()
	at := s.savedAt
	s.mu.RUnlock()
	if !at.IsZero() || s.db == nil {
		return at, !at.IsZero()
	}

	var ms int64
	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get(keySavedAt); v != nil {
			ms, _ = strconv.ParseInt(string(v), 10, 64)
		}
		return nil
	})
	if ms == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Clear deletes every persisted record
func (s *SnapshotStore) Clear() error {
	s.mu.Lock()
	s.cache = make(map[string][]byte)
	s.savedAt = time.Time{}
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRecords, bucketMeta} {
			if tx.Bucket(bucket) != nil {
				if err := tx.DeleteBucket(bucket); err != nil {
					return err
				}
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
}
