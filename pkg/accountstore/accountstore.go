// Package accountstore provides a BadgerDB-backed cache of raw account JSON
// keyed by account name. Unlike blocks, account records go stale, so every
// entry carries its write time and reads declare how much staleness they
// tolerate.
package accountstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/zeebo/blake3"
)

var (
	// ErrNotFound is returned when an account is not cached, or when its
	// cached entry is older than the caller tolerates.
	ErrNotFound = errors.New("account not cached")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("account store closed")
)

// Key prefixes. Prefixes allow iterating one record class at a time.
var (
	// prefixAccount keys account entries: prefixAccount + name bytes.
	prefixAccount = []byte{0x01}
)

// Config contains configuration for the store.
type Config struct {
	// Path is the database directory.
	Path string

	// InMemory runs the database without disk files (for tests).
	InMemory bool

	// SyncWrites fsyncs every write. Off by default; a lost cache entry
	// just means one extra RPC fetch.
	SyncWrites bool

	// Logger is an optional badger logger. Nil silences badger.
	Logger badger.Logger
}

// DefaultConfig returns the default configuration for a path.
func DefaultConfig(path string) Config {
	return Config{Path: path}
}

// Store caches raw account JSON with per-entry write timestamps.
type Store struct {
	db     *badger.DB
	closed atomic.Bool
}

// Open creates or opens an account cache.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(cfg.Logger)
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func accountKey(name string) []byte {
	key := make([]byte, 0, 1+len(name))
	key = append(key, prefixAccount...)
	return append(key, name...)
}

// Entries are 8 bytes of big-endian unix-nano write time followed by the
// raw JSON.
func encodeEntry(raw []byte) []byte {
	buf := make([]byte, 8+len(raw))
	binary.BigEndian.PutUint64(buf, uint64(time.Now().UnixNano()))
	copy(buf[8:], raw)
	return buf
}

func decodeEntry(val []byte) (time.Time, []byte, error) {
	if len(val) < 8 {
		return time.Time{}, nil, fmt.Errorf("entry too short: %d bytes", len(val))
	}
	written := time.Unix(0, int64(binary.BigEndian.Uint64(val)))
	return written, val[8:], nil
}

// Put caches one account's raw JSON, stamping it with the current time.
func (s *Store) Put(name string, raw []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(accountKey(name), encodeEntry(raw))
	})
}

// Get returns an account's cached raw JSON if it was written within maxAge.
// Older or missing entries return ErrNotFound. A maxAge of zero disables
// the staleness check.
func (s *Store) Get(name string, maxAge time.Duration) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(accountKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			written, data, err := decodeEntry(val)
			if err != nil {
				return err
			}
			if maxAge > 0 && time.Since(written) > maxAge {
				return ErrNotFound
			}
			raw = append([]byte(nil), data...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Delete drops one cached account.
func (s *Store) Delete(name string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(accountKey(name))
	})
}

// Names returns every cached account name in sorted order.
func (s *Store) Names() ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixAccount
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			names = append(names, string(key[1:]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Digest hashes every cached name and entry into one value, for cheap
// comparison of two caches.
func (s *Store) Digest() ([32]byte, error) {
	var digest [32]byte
	if s.closed.Load() {
		return digest, ErrClosed
	}

	h := blake3.New()
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixAccount
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			h.Write(item.Key())
			err := item.Value(func(val []byte) error {
				if len(val) > 8 {
					// Skip the timestamp so the digest only reflects
					// account contents.
					h.Write(val[8:])
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return digest, err
	}
	copy(digest[:], h.Sum(nil))
	return digest, nil
}

// GC runs a value-log garbage collection pass.
func (s *Store) GC() error {
	if s.closed.Load() {
		return ErrClosed
	}
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Close shuts the cache down.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return ErrClosed
	}
	return s.db.Close()
}
