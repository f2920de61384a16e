// Package filecache stores downloaded release files (posters) in a bbolt database.
//
// Each [models.FileKind] gets its own bucket and entries are keyed by release id.
// An empty path opens a memory-only cache, which is what tests and dry runs use.
package filecache

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/librix/internal/models"
	"github.com/desertthunder/librix/internal/shared"
	bolt "go.etcd.io/bbolt"
)

var _ models.FileCache = (*Store)(nil)

// Kinds are the buckets created when the store opens.
var Kinds = []models.FileKind{models.PosterKind}

// Store implements [models.FileCache] on top of bbolt.
type Store struct {
	db *bolt.DB

	mu     sync.RWMutex
	memory map[string][]byte // memory-only mode
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return &Store{memory: make(map[string][]byte)}, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, kind := range Kinds {
			if _, err := tx.CreateBucketIfNotExists([]byte(kind)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores data for the given kind and release id, replacing any previous entry.
func (s *Store) Put(kind models.FileKind, id int64, data []byte) error {
	if s.db == nil {
		s.mu.Lock()
		s.memory[memoryKey(kind, id)] = append([]byte(nil), data...)
		s.mu.Unlock()
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(kind))
		if err != nil {
			return fmt.Errorf("failed to open bucket %s: %w", kind, err)
		}
		return b.Put(encodeID(id), data)
	})
}

// Get returns a copy of the cached data, or [shared.ErrCacheMiss].
func (s *Store) Get(kind models.FileKind, id int64) ([]byte, error) {
	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		data, ok := s.memory[memoryKey(kind, id)]
		if !ok {
			return nil, fmt.Errorf("%w: %s %d", shared.ErrCacheMiss, kind, id)
		}
		return append([]byte(nil), data...), nil
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return nil
		}
		if v := b.Get(encodeID(id)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s %d", shared.ErrCacheMiss, kind, id)
	}
	return data, nil
}

// Exists reports whether an entry is cached for the given kind and release id.
func (s *Store) Exists(kind models.FileKind, id int64) (bool, error) {
	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		_, ok := s.memory[memoryKey(kind, id)]
		return ok, nil
	}

	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(kind)); b != nil {
			found = b.Get(encodeID(id)) != nil
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to read cache: %w", err)
	}
	return found, nil
}

// Delete removes the entry for the given kind and release id. Missing entries are not an error.
func (s *Store) Delete(kind models.FileKind, id int64) error {
	if s.db == nil {
		s.mu.Lock()
		delete(s.memory, memoryKey(kind, id))
		s.mu.Unlock()
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return nil
		}
		return b.Delete(encodeID(id))
	})
}

// Count returns the number of entries stored for kind.
func (s *Store) Count(kind models.FileKind) (int, error) {
	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		prefix := string(kind) + ":"
		n := 0
		for k := range s.memory {
			if len(k) > len(prefix) && k[:len(prefix)] == prefix {
				n++
			}
		}
		return n, nil
	}

	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(kind)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// encodeID keys entries big-endian so cursor order matches id order.
func encodeID(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func memoryKey(kind models.FileKind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}
