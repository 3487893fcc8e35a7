// Package blobcache provides a bounded in-memory LRU of decrypted blob
// plaintext, consulted by the restorer's prefetcher and the archiver's
// differ before re-fetching and re-decrypting a blob dedup already proved
// is local. Plays the role restic's repository Cache plays in the
// retrieval pack's repository.go (check cache before hitting the backend),
// implemented with a generic LRU rather than an on-disk mirror since
// spec §4.1 scopes the backend narrowly and does not ask for persistent
// pack caching.
package blobcache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cuemby/strata/pkg/ids"
)

// DefaultCapacity bounds the cache to roughly this many average-size
// chunks worth of memory (capacity * AvgSize from pkg/chunker).
const DefaultCapacity = 512

// Cache is a thread-safe LRU of blob id to decrypted plaintext.
type Cache struct {
	lru *lru.Cache[ids.ID, []byte]
}

// New constructs a Cache holding at most capacity entries.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := lru.New[ids.ID, []byte](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Get returns a blob's cached plaintext, if present.
func (c *Cache) Get(id ids.ID) ([]byte, bool) {
	return c.lru.Get(id)
}

// Put stores a blob's plaintext, evicting the least recently used entry if
// the cache is full.
func (c *Cache) Put(id ids.ID, plaintext []byte) {
	c.lru.Add(id, plaintext)
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}
