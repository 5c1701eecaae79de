// Package store is the shared on-disk database behind the language catalog
// and the translation history.
//
// Keys are ':'-joined segments ("lang:en", "history:<ts>:<id>"); values are
// msgpack-encoded records.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/leonardotrapani/speakswap/internal/logging"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrLocked is returned when another process holds the database.
var ErrLocked = errors.New("store: database is in use by another process (is the daemon running?)")

const sep = ":"

// Options configures Open.
type Options struct {
	// Dir holds the badger files. Required unless InMemory is set.
	Dir string

	// InMemory keeps everything in memory. Used by tests.
	InMemory bool

	Logger *zap.Logger
}

// DB wraps a badger database.
type DB struct {
	db *badger.DB
}

// DefaultDir returns ~/.local/share/speakswap/db (or the platform equivalent
// under the user cache directory when XDG_DATA_HOME is not set).
func DefaultDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "speakswap", "db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "speakswap", "db"), nil
}

func Open(opts Options) (*DB, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: Options.Dir is required for on-disk mode")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	} else if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbOpts = dbOpts.WithLogger(logging.Badger{L: logger.Named("badger").Sugar()})

	db, err := badger.Open(dbOpts)
	if err != nil {
		if strings.Contains(err.Error(), "Cannot acquire directory lock") {
			return nil, fmt.Errorf("%w: %v", ErrLocked, err)
		}
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &DB{db: db}, nil
}

// Key joins segments into a storage key.
func Key(segments ...string) []byte {
	return []byte(strings.Join(segments, sep))
}

// Put msgpack-encodes v and stores it under key.
func (d *DB) Put(key []byte, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// PutAll stores several records in one transaction.
func (d *DB) PutAll(records map[string]any) error {
	return d.db.Update(func(txn *badger.Txn) error {
		for k, v := range records {
			data, err := msgpack.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode %s: %w", k, err)
			}
			if err := txn.Set([]byte(k), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get decodes the record under key into v.
func (d *DB) Get(key []byte, v any) error {
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}

// Scan calls fn with the raw key and a decoder for every record whose key
// starts with prefix, in key order.
func (d *DB) Scan(prefix []byte, fn func(key []byte, decode func(v any) error) error) error {
	p := withSep(prefix)
	return d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: p, PrefetchValues: true, PrefetchSize: 64})
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			decode := func(v any) error { return msgpack.Unmarshal(val, v) }
			if err := fn(item.KeyCopy(nil), decode); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes key. Missing keys are not an error.
func (d *DB) Delete(key []byte) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// DeletePrefix removes every key under prefix and reports how many were
// removed.
func (d *DB) DeletePrefix(prefix []byte) (int, error) {
	var keys [][]byte
	p := withSep(prefix)
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = p
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := d.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// withSep appends the separator so "lang" does not match "language:...".
func withSep(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	p := make([]byte, 0, len(prefix)+1)
	p = append(p, prefix...)
	return append(p, sep...)
}
