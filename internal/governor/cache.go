package governor

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/landlorddocs/smartreview/internal/entity"
)

// Cache is the content-addressed extraction cache. Re-uploading identical
// bytes, even under a different declared category, is a hit and bypasses
// classification, extraction, and merging entirely.
type Cache struct {
	db     *badger.DB
	logger *slog.Logger
}

// CacheConfig configures the backing store.
type CacheConfig struct {
	Dir      string
	InMemory bool // for tests
}

func OpenCache(cfg CacheConfig, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(cfg.Dir).WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Cache{db: db, logger: logger}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func extractionKey(hashHex string) []byte {
	return []byte("extract:" + hashHex)
}

// Get returns the cached extraction result for a content hash, if present.
func (c *Cache) Get(hashHex string) (*entity.ExtractionResult, bool) {
	var out entity.ExtractionResult
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(extractionKey(hashHex))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("cache.get.failed", "hash", hashHex, "error", err)
		}
		return nil, false
	}
	return &out, true
}

// Put stores an extraction result under its content hash. Cache writes are
// best-effort: a failure costs a recompute, never correctness.
func (c *Cache) Put(res *entity.ExtractionResult) {
	b, err := json.Marshal(res)
	if err != nil {
		c.logger.Warn("cache.put.marshal_failed", "hash", res.FileHash, "error", err)
		return
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(extractionKey(res.FileHash), b)
	})
	if err != nil {
		c.logger.Warn("cache.put.failed", "hash", res.FileHash, "error", err)
	}
}
