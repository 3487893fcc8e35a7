package repository

import (
	"context"

	"github.com/cuemby/strata/pkg/log"
)

// Lock serialises mutating operations across processes (spec §5: "the
// repository lock serialises all mutating operations: snapshot, forget,
// gc, init"). Readers never call this.
func (r *Repository) Lock(ctx context.Context) error {
	lock, err := r.be.AcquireLock(ctx, r.holder, LockTTL)
	if err != nil {
		return err
	}
	r.lock = &lock
	log.WithComponent("repository").Debug().Str("holder", r.holder).Msg("acquired repository lock")
	return nil
}

// Unlock releases a previously acquired lock. Safe to call when no lock is
// held.
func (r *Repository) Unlock(ctx context.Context) error {
	if r.lock == nil {
		return nil
	}
	err := r.be.ReleaseLock(ctx, *r.lock)
	r.lock = nil
	return err
}

// RemoveStaleLocks force-removes the repository's lock object regardless
// of its age, for `strata unlock` (mirroring restic's own unlock
// command). A ttl of 0 makes any
// existing lock look stale to AcquireLock, so this always succeeds in
// taking over and then immediately releasing the lock.
func (r *Repository) RemoveStaleLocks(ctx context.Context) error {
	lock, err := r.be.AcquireLock(ctx, r.holder, 0)
	if err != nil {
		return err
	}
	return r.be.ReleaseLock(ctx, lock)
}
