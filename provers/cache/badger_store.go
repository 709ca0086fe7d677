// Package cache provides the byte stores behind the proving key cache.
package cache

import (
	"errors"
	"fmt"
	"os"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"
)

// BadgerStore is a persistent byte cache backed by BadgerDB.
// Every key is prefixed with the namespace, so bumping the namespace
// version hides all entries written under the previous one.
type BadgerStore struct {
	db        *badgerdb.DB
	namespace string
}

// OpenBadger opens (or creates) the store under dir.
// Badger's in-memory mode caps values at 1 MiB, so a directory is required;
// use MemoryStore for a process-local cache.
func OpenBadger(dir, namespace string, log zerolog.Logger) (*BadgerStore, error) {
	if namespace == "" {
		return nil, errors.New("cache namespace is required")
	}
	if dir == "" {
		return nil, errors.New("cache dir is required")
	}

	opts := badgerdb.DefaultOptions(dir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	opts.Logger = badgerLogger{log.With().Str("component", "badger").Logger()}
	opts.SyncWrites = true
	opts.NumCompactors = 2
	opts.BlockCacheSize = 32 << 20
	opts.IndexCacheSize = 32 << 20

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache at %q: %w", dir, err)
	}

	return &BadgerStore{db: db, namespace: namespace}, nil
}

func (s *BadgerStore) key(k string) []byte {
	return []byte(s.namespace + "/" + k)
}

// Get returns a copy of the value stored for k.
func (s *BadgerStore) Get(k string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(s.key(k))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put stores value under k in a single transaction.
func (s *BadgerStore) Put(k string, value []byte) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(s.key(k), value)
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace().Msgf(format, args...)
}
