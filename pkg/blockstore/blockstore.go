// Package blockstore provides a persistent archive of raw block JSON keyed
// by block number. Blocks on Steem-family chains are immutable once signed,
// so the archive never updates an entry in place.
package blockstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// ErrBlockNotFound is returned when a block is not in the archive.
	ErrBlockNotFound = errors.New("block not found")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("blockstore closed")
)

// Bucket names.
var (
	// bucketBlocks holds raw block JSON keyed by big-endian block number.
	bucketBlocks = []byte("blocks")

	// bucketMetadata holds archive bookkeeping.
	bucketMetadata = []byte("metadata")
)

// Metadata keys.
var (
	keyLatest = []byte("latest")
	keyOldest = []byte("oldest")
	keyCount  = []byte("count")
)

// Config holds blockstore configuration options.
type Config struct {
	// Path is the database file path.
	Path string

	// NoSync disables fsync after each write (faster but less durable).
	NoSync bool

	// ReadOnly opens the database read-only.
	ReadOnly bool
}

// DefaultConfig returns the default configuration for a path.
func DefaultConfig(path string) Config {
	return Config{Path: path}
}

// Store is a bbolt-backed block archive. Big-endian keys keep blocks in
// number order so range scans walk the chain forward.
type Store struct {
	db     *bolt.DB
	config Config

	mu     sync.RWMutex
	latest uint64
	oldest uint64
	count  uint64
	closed bool
}

// Open creates or opens a block archive at config.Path.
func Open(config Config) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := bolt.Open(config.Path, 0600, &bolt.Options{
		Timeout:  5 * time.Second,
		NoSync:   config.NoSync,
		ReadOnly: config.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, config: config}

	if !config.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			for _, name := range [][]byte{bucketBlocks, bucketMetadata} {
				if _, err := tx.CreateBucketIfNotExists(name); err != nil {
					return fmt.Errorf("create bucket %s: %w", name, err)
				}
			}
			return nil
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := s.loadMetadata(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	return s, nil
}

func (s *Store) loadMetadata() error {
	return s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMetadata)
		if meta == nil {
			return nil
		}
		if v := meta.Get(keyLatest); v != nil {
			s.latest = decodeKey(v)
		}
		if v := meta.Get(keyOldest); v != nil {
			s.oldest = decodeKey(v)
		}
		if v := meta.Get(keyCount); v != nil {
			s.count = decodeKey(v)
		}
		return nil
	})
}

func encodeKey(num uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, num)
	return key
}

func decodeKey(key []byte) uint64 {
	if len(key) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key)
}

// Put archives one block's raw JSON under its number.
func (s *Store) Put(num uint64, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	var isNew bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		blocks := tx.Bucket(bucketBlocks)
		key := encodeKey(num)
		isNew = blocks.Get(key) == nil
		if err := blocks.Put(key, raw); err != nil {
			return err
		}

		meta := tx.Bucket(bucketMetadata)
		if num > s.latest {
			if err := meta.Put(keyLatest, key); err != nil {
				return err
			}
		}
		if s.count == 0 || num < s.oldest {
			if err := meta.Put(keyOldest, key); err != nil {
				return err
			}
		}
		if isNew {
			return meta.Put(keyCount, encodeKey(s.count+1))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if num > s.latest {
		s.latest = num
	}
	if s.count == 0 || num < s.oldest {
		s.oldest = num
	}
	if isNew {
		s.count++
	}
	return nil
}

// Get returns one block's raw JSON, or ErrBlockNotFound.
func (s *Store) Get(num uint64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBlocks).Get(encodeKey(num))
		if data == nil {
			return ErrBlockNotFound
		}
		raw = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Has reports whether a block is archived.
func (s *Store) Has(num uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}

	exists := false
	s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketBlocks).Get(encodeKey(num)) != nil
		return nil
	})
	return exists
}

// Range calls fn for every archived block in [start, end], in ascending
// order. Gaps are skipped. Returning an error from fn stops the walk.
func (s *Store) Range(start, end uint64, fn func(num uint64, raw []byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketBlocks).Cursor()
		endKey := encodeKey(end)
		for k, v := c.Seek(encodeKey(start)); k != nil; k, v = c.Next() {
			if decodeKey(k) > decodeKey(endKey) {
				return nil
			}
			if err := fn(decodeKey(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Latest returns the highest archived block number.
func (s *Store) Latest() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Oldest returns the lowest archived block number.
func (s *Store) Oldest() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.oldest
}

// Count returns the number of archived blocks.
func (s *Store) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Prune drops archived blocks older than keep blocks behind the latest.
// Returns how many were removed.
func (s *Store) Prune(keep uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if s.latest <= keep {
		return 0, nil
	}

	cutoff := s.latest - keep
	var pruned uint64
	var newOldest uint64

	err := s.db.Update(func(tx *bolt.Tx) error {
		blocks := tx.Bucket(bucketBlocks)
		c := blocks.Cursor()
		for k, _ := c.First(); k != nil && decodeKey(k) < cutoff; k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			pruned++
		}
		if k, _ := c.First(); k != nil {
			newOldest = decodeKey(k)
		}

		meta := tx.Bucket(bucketMetadata)
		if err := meta.Put(keyOldest, encodeKey(newOldest)); err != nil {
			return err
		}
		return meta.Put(keyCount, encodeKey(s.count-pruned))
	})
	if err != nil {
		return 0, err
	}

	s.oldest = newOldest
	s.count -= pruned
	return pruned, nil
}

// Sync flushes the database to disk.
func (s *Store) Sync() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Sync()
}

// Close shuts the archive down.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
