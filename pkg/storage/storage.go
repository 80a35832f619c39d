package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/vjranagit/drought/pkg/table"
)

// Backend names
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

var (
	// ErrNotFound is returned when no table is stored under a key
	ErrNotFound = errors.New("table not found")
	// ErrInvalidKey is returned for empty or malformed keys
	ErrInvalidKey = errors.New("invalid table key")
	// ErrUnknownBackend is returned by New for unsupported backends
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// Store persists finished tables under string keys
type Store interface {
	// Save writes t under key, replacing any previous table
	Save(ctx context.Context, key string, t *table.Table) error

	// Load reads the table stored under key
	Load(ctx context.Context, key string) (*table.Table, error)

	// Keys lists stored keys in lexical order
	Keys(ctx context.Context) ([]string, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the store
	Close() error
}

// Config holds storage configuration
type Config struct {
	Backend          string
	Path             string
	CompressionLevel int
	CacheCapacity    int
	CacheTTL         time.Duration
	RedisAddr        string
	RedisPrefix      string
}

// DefaultConfig returns default storage configuration
func DefaultConfig() *Config {
	return &Config{
		Backend:          BackendBadger,
		Path:             "./data",
		CompressionLevel: 3,
		CacheCapacity:    64,
		CacheTTL:         10 * time.Minute,
		RedisPrefix:      "drought:table:",
	}
}

// New opens the configured backend, wrapped in a cache when CacheCapacity
// is positive.
func New(cfg *Config, log logrus.FieldLogger) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	codec, err := NewCodec(cfg.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create codec: %w", err)
	}

	var s Store
	switch cfg.Backend {
	case BackendBadger, "":
		s, err = NewBadgerStore(filepath.Join(cfg.Path, "badger"), codec)
	case BackendSQLite:
		s, err = NewSQLiteStore(filepath.Join(cfg.Path, "tables.db"), codec)
	case BackendRedis:
		s, err = NewRedisStore(cfg.RedisAddr, cfg.RedisPrefix, codec)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		codec.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"backend": cfg.Backend,
		"path":    cfg.Path,
	}).Info("Table store opened")

	if cfg.CacheCapacity > 0 {
		s = NewCachedStore(s, cfg.CacheCapacity, cfg.CacheTTL, log)
	}
	return s, nil
}

// ValidateKey checks that key can be used by every backend
func ValidateKey(key string) error {
	if key == "" || strings.ContainsAny(key, " \t\n*?[]") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

const badgerKeyPrefix = "table/"

// BadgerStore implements Store using BadgerDB
type BadgerStore struct {
	db    *badger.DB
	codec *Codec
}

// NewBadgerStore opens (or creates) a badger database at dir
func NewBadgerStore(dir string, codec *Codec) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &BadgerStore{db: db, codec: codec}, nil
}

// Save implements Store.Save
func (s *BadgerStore) Save(ctx context.Context, key string, t *table.Table) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	payload, err := s.codec.Encode(t)
	if err != nil {
		return fmt.Errorf("failed to encode table %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+key), payload)
	})
}

// Load implements Store.Load
func (s *BadgerStore) Load(ctx context.Context, key string) (*table.Table, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	var payload []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", key, err)
	}
	return s.codec.Decode(payload)
}

// Keys implements Store.Keys
func (s *BadgerStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), badgerKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete implements Store.Delete
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(badgerKeyPrefix + key))
	})
}

// Close implements Store.Close
func (s *BadgerStore) Close() error {
	defer s.codec.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
