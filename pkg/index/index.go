// Package index implements the repository's in-memory content-hash → pack
// location directory and its persisted form (spec §4.5). Grounded on
// restic's MasterIndex / CreateIndexFromPacks pattern in the retrieval
// pack's repository.go: load every index object, then reconcile against
// the pack listing and backfill coverage for anything missed.
package index

import (
	"sync"

	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/pack"
)

// Location records where a blob's sealed bytes live.
type Location struct {
	PackID ids.ID
	Entry  pack.Entry
}

// Index is the process-lifetime, read-mostly map from content hash to pack
// location. Safe for concurrent use: the archiver's store workers look up
// and insert concurrently while the tree builder and snapshot finaliser
// only read (spec §9: "the index is shared read-mostly and guarded by a
// readers-writer discipline").
type Index struct {
	mu        sync.RWMutex
	locations map[ids.ID]Location
	packs     ids.Set // packs whose manifest is fully reflected here
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		locations: make(map[ids.ID]Location),
		packs:     ids.NewSet(),
	}
}

// Contains reports whether id is known to be stored. Per spec §4.5's
// contract, this must not return false for any blob actually present in a
// pack whose index has already been loaded; it may return false only
// during a rebuild window before that pack's coverage is added.
func (idx *Index) Contains(id ids.ID) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.locations[id]
	return ok
}

// Lookup returns a blob's pack location.
func (idx *Index) Lookup(id ids.ID) (Location, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	loc, ok := idx.locations[id]
	return loc, ok
}

// AddPack records every entry of a pack's manifest as index coverage. Safe
// to call more than once for the same pack id; later calls overwrite
// entries (used when GC repacks and rewrites coverage).
func (idx *Index) AddPack(packID ids.ID, entries []pack.Entry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, e := range entries {
		idx.locations[e.ID] = Location{PackID: packID, Entry: e}
	}
	idx.packs.Insert(packID)
}

// RemovePack drops every location pointing at packID, used when GC deletes
// or replaces a pack.
func (idx *Index) RemovePack(packID ids.ID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for id, loc := range idx.locations {
		if loc.PackID == packID {
			delete(idx.locations, id)
		}
	}
	idx.packs.Delete(packID)
}

// HasPack reports whether packID's manifest has been folded into the
// index.
func (idx *Index) HasPack(packID ids.ID) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.packs.Has(packID)
}

// CoveredPacks returns every pack id currently represented in the index.
func (idx *Index) CoveredPacks() []ids.ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.packs.List()
}

// Len returns the number of distinct blobs indexed.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.locations)
}

// Snapshot returns a stable copy of all locations, keyed by pack id, for
// encoding into a persisted index object.
func (idx *Index) Snapshot() map[ids.ID][]pack.Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[ids.ID][]pack.Entry, len(idx.packs))
	for id, loc := range idx.locations {
		_ = id
		out[loc.PackID] = append(out[loc.PackID], loc.Entry)
	}
	return out
}
