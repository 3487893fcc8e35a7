package repository

import (
	"context"
	"fmt"

	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/index"
	"github.com/cuemby/strata/pkg/pack"
)

// StoreBlob writes plaintext under a content-addressed id, deduplicating
// against the in-memory index before touching the backend (spec §4.6:
// "the dedup check happens before a blob is ever sealed into a pack").
// Blobs are buffered into the current pack and flushed once it reaches
// pack.SoftCap.
func (r *Repository) StoreBlob(ctx context.Context, kind ids.Kind, plaintext []byte) (ids.ID, error) {
	id := ids.Hash(plaintext)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.idx.Contains(id) {
		return id, nil
	}

	if r.current == nil {
		w, err := pack.NewWriter(r.sealer)
		if err != nil {
			return ids.ID{}, err
		}
		r.current = w
	}

	if err := r.current.Add(kind, id, plaintext); err != nil {
		return ids.ID{}, err
	}
	// Index the blob as soon as it is buffered, so a repeat of it before
	// the pack is flushed is deduplicated too.
	entries := r.current.Entries()
	r.idx.AddPack(r.current.ID(), entries[len(entries)-1:])

	if r.current.Size() >= pack.SoftCap {
		if err := r.flushCurrentLocked(ctx); err != nil {
			return ids.ID{}, err
		}
	}

	return id, nil
}

// LoadBlob resolves id via the blob cache, then the index, and finally
// the backing pack. Successful reads are cached for reuse.
func (r *Repository) LoadBlob(ctx context.Context, kind ids.Kind, id ids.ID) ([]byte, error) {
	if r.cache != nil {
		if data, ok := r.cache.Get(id); ok {
			return data, nil
		}
	}

	loc, ok := r.lookupLocked(id)
	if !ok {
		return nil, fmt.Errorf("repository: blob %s not found in index", id)
	}

	data, err := r.reader.Blob(ctx, loc.PackID, loc.Entry)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Put(id, data)
	}
	return data, nil
}

func (r *Repository) lookupLocked(id ids.ID) (index.Location, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.idx.Lookup(id)
}

// FlushPacks force-finishes the in-progress pack (if any) and returns
// every pack id flushed but not yet covered by a durable index object.
// Callers that need a durability guarantee should follow this with
// WriteIndex.
func (r *Repository) FlushPacks(ctx context.Context) ([]ids.ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil && !r.current.Empty() {
		if err := r.flushCurrentLocked(ctx); err != nil {
			return nil, err
		}
	}

	pending := make([]ids.ID, len(r.pendingNew))
	copy(pending, r.pendingNew)
	return pending, nil
}

// flushCurrentLocked seals the current pack, writes it to the backend,
// and folds its entries into the in-memory index; if the pack cannot be
// written, its buffered entries are dropped from the index. Caller must
// hold r.mu.
func (r *Repository) flushCurrentLocked(ctx context.Context) error {
	w := r.current
	r.current = nil

	data, err := w.Finish()
	if err != nil {
		r.idx.RemovePack(w.ID())
		return err
	}
	if err := r.be.Put(ctx, ids.KindPack, w.ID(), data); err != nil {
		r.idx.RemovePack(w.ID())
		return err
	}

	r.idx.AddPack(w.ID(), w.Entries())
	r.pendingNew = append(r.pendingNew, w.ID())
	return nil
}

// WriteIndex encodes and stores a new index object covering packIDs,
// then clears them from the pending set (spec §5: "a snapshot is only
// durable once every pack it references is covered by at least one
// persisted index object").
func (r *Repository) WriteIndex(ctx context.Context, packIDs []ids.ID) (ids.ID, error) {
	if len(packIDs) == 0 {
		return ids.ID{}, nil
	}

	r.mu.Lock()
	full := r.idx.Snapshot()
	r.mu.Unlock()

	byPack := make(map[ids.ID][]pack.Entry, len(packIDs))
	for _, packID := range packIDs {
		if entries, ok := full[packID]; ok {
			byPack[packID] = entries
		}
	}

	data, err := index.Encode(byPack)
	if err != nil {
		return ids.ID{}, err
	}
	indexID := ids.Hash(data)
	sealed, err := r.sealer.Seal(ids.KindIndex, indexID, data)
	if err != nil {
		return ids.ID{}, err
	}
	if err := r.be.Put(ctx, ids.KindIndex, indexID, sealed); err != nil {
		return ids.ID{}, err
	}

	r.mu.Lock()
	r.pendingNew = removeAll(r.pendingNew, packIDs)
	r.mu.Unlock()

	return indexID, nil
}

func removeAll(from []ids.ID, remove []ids.ID) []ids.ID {
	removeSet := ids.NewSet(remove...)
	out := from[:0:0]
	for _, id := range from {
		if !removeSet.Has(id) {
			out = append(out, id)
		}
	}
	return out
}
