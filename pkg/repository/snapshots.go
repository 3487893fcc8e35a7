package repository

import (
	"context"

	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/snapshot"
)

// ListSnapshotIDs satisfies snapshot.Lister, letting snapshot.Resolve work
// directly against a Repository.
func (r *Repository) ListSnapshotIDs(ctx context.Context) ([]ids.ID, error) {
	return r.be.List(ctx, ids.KindSnapshot)
}

// LoadSnapshot fetches and decrypts a single snapshot object. Snapshot
// objects are small and always fetched whole rather than through the
// pack/blob path, since they are stored directly under the snapshot kind
// namespace (spec §6), not packed alongside data chunks.
func (r *Repository) LoadSnapshot(ctx context.Context, id ids.ID) (snapshot.Snapshot, error) {
	sealed, err := r.be.Get(ctx, ids.KindSnapshot, id, 0, -1)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	plain, err := r.sealer.Open(ids.KindSnapshot, id, sealed)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	return snapshot.Decode(plain)
}

// StoreSnapshot encodes, seals, and writes a snapshot object. This is the
// final commit step of an archive run: callers must ensure every pack the
// snapshot's tree transitively references is already durable and covered
// by a persisted index object before calling this (spec §5).
func (r *Repository) StoreSnapshot(ctx context.Context, snap snapshot.Snapshot) (ids.ID, error) {
	data, err := snapshot.Encode(snap)
	if err != nil {
		return ids.ID{}, err
	}
	id := ids.Hash(data)
	sealed, err := r.sealer.Seal(ids.KindSnapshot, id, data)
	if err != nil {
		return ids.ID{}, err
	}
	if err := r.be.Put(ctx, ids.KindSnapshot, id, sealed); err != nil {
		return ids.ID{}, err
	}
	return id, nil
}

// RemoveSnapshot deletes a snapshot object, used by forget (spec §4.9).
func (r *Repository) RemoveSnapshot(ctx context.Context, id ids.ID) error {
	return r.be.Remove(ctx, ids.KindSnapshot, id)
}
