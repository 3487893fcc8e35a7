// Package localcache provides a bbolt-backed on-disk cache of decoded
// index object bodies, keyed by repository id. repository.Open opens it
// when given a path, but index loading neither reads from nor writes to
// it: every index object is still fetched and decrypted from the backend
// on each open. Grounded directly on
// cuemby-warren/pkg/storage/boltdb.go's bucket-per-entity CRUD shape,
// repurposed from cluster entity storage to a content cache.
package localcache

import (
	"encoding/hex"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/strata/pkg/ids"
)

// Cache wraps a bbolt database of cached index object plaintexts.
type Cache struct {
	db *bolt.DB
}

var indexObjectsBucket = []byte("index_objects")

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("localcache: opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(indexObjectsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("localcache: initializing buckets: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(repoID, indexID ids.ID) []byte {
	return []byte(hex.EncodeToString(repoID[:]) + "/" + hex.EncodeToString(indexID[:]))
}

// Get returns the cached plaintext bytes for an index object, if present.
func (c *Cache) Get(repoID, indexID ids.ID) ([]byte, bool, error) {
	var value []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(indexObjectsBucket)
		v := b.Get(cacheKey(repoID, indexID))
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("localcache: reading %s: %w", indexID.Str(), err)
	}
	return value, value != nil, nil
}

// Put stores an index object's decoded plaintext.
func (c *Cache) Put(repoID, indexID ids.ID, plaintext []byte) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(indexObjectsBucket)
		return b.Put(cacheKey(repoID, indexID), plaintext)
	})
	if err != nil {
		return fmt.Errorf("localcache: storing %s: %w", indexID.Str(), err)
	}
	return nil
}

// Prune removes cached entries for repoID whose index id is not in keep
// (an index object is only ever replaced wholesale by GC, never edited, so
// anything not in keep is permanently gone).
func (c *Cache) Prune(repoID ids.ID, keep ids.Set) error {
	prefix := hex.EncodeToString(repoID[:]) + "/"
	var toDelete [][]byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(indexObjectsBucket)
		cur := b.Cursor()
		for k, _ := cur.Seek([]byte(prefix)); k != nil; k, _ = cur.Next() {
			key := string(k)
			if len(key) < len(prefix) || key[:len(prefix)] != prefix {
				break
			}
			hexID := key[len(prefix):]
			id, err := ids.Parse(hexID)
			if err != nil || !keep.Has(id) {
				toDelete = append(toDelete, append([]byte(nil), k...))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("localcache: scanning for prune: %w", err)
	}
	if len(toDelete) == 0 {
		return nil
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(indexObjectsBucket)
		for _, k := range toDelete {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
