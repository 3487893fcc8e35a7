package gc

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/log"
	"github.com/cuemby/strata/pkg/snapshot"
)

// snapshotLister is the repository surface forget needs: list every
// snapshot id and remove the ones selected for deletion. The real
// *repository.Repository satisfies this without this package importing
// it, mirroring how snapshot.Lister decouples snapshot resolution.
type snapshotLister interface {
	ListSnapshotIDs(ctx context.Context) ([]ids.ID, error)
	LoadSnapshot(ctx context.Context, id ids.ID) (snapshot.Snapshot, error)
	RemoveSnapshot(ctx context.Context, id ids.ID) error
}

// ForgetIDs removes exactly the listed snapshot ids (spec §4.9: "forget
// selects snapshots to delete either by id or by retention policy").
func ForgetIDs(ctx context.Context, repo snapshotLister, targets []ids.ID) error {
	logger := log.WithComponent("gc")
	for _, id := range targets {
		if err := repo.RemoveSnapshot(ctx, id); err != nil {
			return fmt.Errorf("gc: removing snapshot %s: %w", id.Str(), err)
		}
		logger.Info().Str("snapshot_id", id.Str()).Msg("forgot snapshot")
	}
	return nil
}

// ForgetByPolicy evaluates policy against every snapshot in the repository
// and removes the ones it doesn't keep, returning their ids.
func ForgetByPolicy(ctx context.Context, repo snapshotLister, policy Policy, now time.Time) ([]ids.ID, error) {
	snapIDs, err := repo.ListSnapshotIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("gc: listing snapshots: %w", err)
	}

	snaps := make([]snapshot.Snapshot, len(snapIDs))
	for i, id := range snapIDs {
		snap, err := repo.LoadSnapshot(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("gc: loading snapshot %s: %w", id.Str(), err)
		}
		snaps[i] = snap
	}

	forget := SelectForgettable(snaps, snapIDs, policy, now)
	if err := ForgetIDs(ctx, repo, forget); err != nil {
		return nil, err
	}
	return forget, nil
}
