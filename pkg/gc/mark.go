package gc

import (
	"context"
	"fmt"

	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/log"
	"github.com/cuemby/strata/pkg/repository"
	"github.com/cuemby/strata/pkg/tree"
)

// Mark walks every live snapshot's tree graph and chunk references,
// returning the set of blob ids still reachable (spec §4.9 step 3). Tree
// and chunk ids share one set: both are content hashes in the same
// backend namespace once a pack is swept.
func Mark(ctx context.Context, repo *repository.Repository) (ids.Set, error) {
	logger := log.WithComponent("gc")
	marked := ids.NewSet()

	snapIDs, err := repo.ListSnapshotIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("gc: listing snapshots: %w", err)
	}

	queue := make([]ids.ID, 0, len(snapIDs))
	for _, snapID := range snapIDs {
		snap, err := repo.LoadSnapshot(ctx, snapID)
		if err != nil {
			return nil, fmt.Errorf("gc: loading snapshot %s: %w", snapID.Str(), err)
		}
		if !marked.Has(snap.Tree) {
			marked.Insert(snap.Tree)
			queue = append(queue, snap.Tree)
		}
	}

	for len(queue) > 0 {
		treeID := queue[0]
		queue = queue[1:]

		data, err := repo.LoadBlob(ctx, ids.KindTree, treeID)
		if err != nil {
			return nil, fmt.Errorf("gc: loading tree %s: %w", treeID.Str(), err)
		}
		t, err := tree.Decode(data)
		if err != nil {
			return nil, err
		}

		for _, e := range t.Entries {
			switch e.Kind {
			case tree.KindFile:
				for _, c := range e.Chunks {
					marked.Insert(c)
				}
			case tree.KindDir:
				if !e.Subtree.IsNil() && !marked.Has(e.Subtree) {
					marked.Insert(e.Subtree)
					queue = append(queue, e.Subtree)
				}
			}
		}
	}

	logger.Debug().Int("live_blobs", marked.Len()).Msg("mark phase complete")
	return marked, nil
}
