package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

// entries in the memory store outlive any process
const memoryLifeWindow = 100 * 365 * 24 * time.Hour

// MemoryStore is a process-local byte cache on top of BigCache.
// It satisfies the same contract as BadgerStore but forgets everything on exit.
type MemoryStore struct {
	cache     *bigcache.BigCache
	namespace string
}

func NewMemoryStore(namespace string) (*MemoryStore, error) {
	if namespace == "" {
		return nil, errors.New("cache namespace is required")
	}

	cfg := bigcache.DefaultConfig(memoryLifeWindow)
	// a handful of large blobs, not many small entries
	cfg.Shards = 4
	cfg.MaxEntriesInWindow = 4
	cfg.MaxEntrySize = 64 << 10
	cfg.CleanWindow = 0
	cfg.HardMaxCacheSize = 0
	cfg.Verbose = false

	c, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryStore{cache: c, namespace: namespace}, nil
}

func (s *MemoryStore) Get(k string) ([]byte, bool, error) {
	value, err := s.cache.Get(s.namespace + "/" + k)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *MemoryStore) Put(k string, value []byte) error {
	return s.cache.Set(s.namespace+"/"+k, value)
}

func (s *MemoryStore) Close() error {
	return s.cache.Close()
}
