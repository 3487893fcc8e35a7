// Package verify implements the `strata verify` command (spec.md §9 Open
// Question: "a verify mode should exist"): walking every live snapshot's
// tree graph and confirming each referenced blob actually resolves to a
// pack entry, with an optional deeper pass that decrypts every blob and
// recomputes its content hash. Grounded on gc.Mark's BFS shape, since
// verify needs the same snapshot->tree->subtree->chunk traversal — only
// the action taken per blob id differs (check, not mark-for-keep).
package verify

import (
	"context"
	"fmt"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/log"
	"github.com/cuemby/strata/pkg/repository"
	"github.com/cuemby/strata/pkg/tree"
)

// Options controls how thorough a verify run is.
type Options struct {
	// ReadData additionally fetches and decrypts every referenced blob,
	// checking its plaintext hash against its claimed id (spec §8
	// property 7). Without it, verify only checks that the index and
	// pack manifests account for every reference — much cheaper, but
	// can't catch silent bit rot in a pack's ciphertext.
	ReadData bool
}

// Stats summarises one verify run for CLI reporting.
type Stats struct {
	SnapshotsChecked int
	TreesChecked     int
	BlobsChecked     int
}

// Run walks every live snapshot's tree graph, confirming every referenced
// tree and chunk blob resolves to a pack entry (and, with Options.ReadData,
// decrypts and hash-checks it). The first inconsistency found is returned
// as an errs.CorruptRepository error naming the offending object id.
func Run(ctx context.Context, repo *repository.Repository, opts Options) (Stats, error) {
	logger := log.WithComponent("verify")
	var stats Stats

	snapIDs, err := repo.ListSnapshotIDs(ctx)
	if err != nil {
		return stats, fmt.Errorf("verify: listing snapshots: %w", err)
	}

	seen := ids.NewSet()
	queue := make([]ids.ID, 0, len(snapIDs))
	for _, snapID := range snapIDs {
		snap, err := repo.LoadSnapshot(ctx, snapID)
		if err != nil {
			return stats, fmt.Errorf("verify: loading snapshot %s: %w", snapID.Str(), err)
		}
		stats.SnapshotsChecked++

		if !seen.Has(snap.Tree) {
			seen.Insert(snap.Tree)
			queue = append(queue, snap.Tree)
		}
	}

	checkedBlobs := ids.NewSet()
	for len(queue) > 0 {
		treeID := queue[0]
		queue = queue[1:]

		data, err := loadTree(ctx, repo, treeID, opts.ReadData)
		if err != nil {
			return stats, err
		}
		stats.TreesChecked++

		t, err := tree.Decode(data)
		if err != nil {
			return stats, err
		}

		for _, e := range t.Entries {
			switch e.Kind {
			case tree.KindFile:
				for _, c := range e.Chunks {
					if checkedBlobs.Has(c) {
						continue
					}
					checkedBlobs.Insert(c)
					if err := checkDataBlob(ctx, repo, c, opts.ReadData); err != nil {
						return stats, err
					}
					stats.BlobsChecked++
				}
			case tree.KindDir:
				if !e.Subtree.IsNil() && !seen.Has(e.Subtree) {
					seen.Insert(e.Subtree)
					queue = append(queue, e.Subtree)
				}
			}
		}
	}

	logger.Info().
		Int("snapshots", stats.SnapshotsChecked).
		Int("trees", stats.TreesChecked).
		Int("blobs", stats.BlobsChecked).
		Msg("verify complete")
	return stats, nil
}

// loadTree loads and decrypts a tree blob — walking the tree graph
// requires its content regardless of Options.ReadData — and, when readData
// is set, additionally re-checks its plaintext hash against id.
func loadTree(ctx context.Context, repo *repository.Repository, id ids.ID, readData bool) ([]byte, error) {
	if _, ok := repo.Index().Lookup(id); !ok {
		return nil, errs.CorruptRepository(fmt.Sprintf("tree %s referenced but missing from index", id.Str()), nil)
	}
	data, err := repo.LoadBlob(ctx, ids.KindTree, id)
	if err != nil {
		return nil, errs.CorruptRepository(fmt.Sprintf("tree %s failed to decrypt", id.Str()), err)
	}
	if readData && ids.Hash(data) != id {
		return nil, errs.CorruptRepository(fmt.Sprintf("tree %s plaintext hash mismatch", id.Str()), nil)
	}
	return data, nil
}

// checkDataBlob confirms a chunk id resolves in the index without
// necessarily reading it; with readData it also decrypts and hash-checks
// the plaintext, the only way to catch silent ciphertext corruption.
func checkDataBlob(ctx context.Context, repo *repository.Repository, id ids.ID, readData bool) error {
	if _, ok := repo.Index().Lookup(id); !ok {
		return errs.CorruptRepository(fmt.Sprintf("data %s referenced but missing from index", id.Str()), nil)
	}
	if !readData {
		return nil
	}
	data, err := repo.LoadBlob(ctx, ids.KindData, id)
	if err != nil {
		return errs.CorruptRepository(fmt.Sprintf("data %s failed to decrypt", id.Str()), err)
	}
	if ids.Hash(data) != id {
		return errs.CorruptRepository(fmt.Sprintf("data %s plaintext hash mismatch", id.Str()), nil)
	}
	return nil
}
