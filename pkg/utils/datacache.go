// Package utils provides supporting utilities for the taxoscope viewer.
package utils

import (
	"crypto/sha256"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// DataCache is a badger-backed store for raw dataset payloads keyed by
// source URL, so a viewer restart renders without re-downloading the
// flattened tree. A small in-memory layer fronts the disk store.
type DataCache struct {
	db    *badger.DB
	cache sync.Map
}

// OpenDataCache opens (or creates) the cache at path.
func OpenDataCache(path string) (*DataCache, error) {
	opts := badger.DefaultOptions(path)
	// Decrease logging verbosity
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &DataCache{db: db}, nil
}

func (c *DataCache) Close() error {
	return c.db.Close()
}

func cacheKey(source string) []byte {
	sum := sha256.Sum256([]byte(source))
	return sum[:]
}

// Get returns the cached payload for source, if present.
func (c *DataCache) Get(source string) ([]byte, bool) {
	if v, ok := c.cache.Load(source); ok {
		return v.([]byte), true
	}
	var payload []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(source))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false
	}
	c.cache.Store(source, payload)
	return payload, true
}

// Put stores the payload for source.
func (c *DataCache) Put(source string, payload []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(source), payload)
	})
	if err != nil {
		return err
	}
	c.cache.Store(source, payload)
	return nil
}

// Drop removes the payload for source, forcing the next Get to miss.
func (c *DataCache) Drop(source string) error {
	c.cache.Delete(source)
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(cacheKey(source))
	})
}
