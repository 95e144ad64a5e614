// Package enrich layers EPUB metadata from the cloud file library onto
// device book records, backed by a local cache so each file is only ever
// downloaded once.
package enrich

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfsync/shelfsync/internal/domain"
	"github.com/shelfsync/shelfsync/internal/normalize"
)

const cacheKeyPrefix = "epub:"

// Cache is a persistent title-keyed metadata cache.
type Cache struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenCache opens the cache at path, creating it on first use.
func OpenCache(path string, logger *slog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata cache: %w", err)
	}

	if logger != nil {
		logger.Info("metadata cache opened", "path", path)
	}
	return &Cache{db: db, logger: logger}, nil
}

// OpenCacheInMemory opens a throwaway in-memory cache (for testing).
func OpenCacheInMemory(logger *slog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory cache: %w", err)
	}
	return &Cache{db: db, logger: logger}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(title string) []byte {
	return []byte(cacheKeyPrefix + normalize.Fold(title))
}

// Get returns the cached metadata for a title, if present.
func (c *Cache) Get(title string) (*domain.EpubMetadata, bool, error) {
	var md domain.EpubMetadata
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(title))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &md)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}
	return &md, true, nil
}

// Put stores metadata under a title key.
func (c *Cache) Put(title string, md *domain.EpubMetadata) error {
	data, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(title), data)
	})
}
