// Package diff implements the `strata diff` command (spec.md §9 Open
// Question: "a diff mode should exist"): walking two snapshots' tree
// graphs in lockstep, by the same sorted-name order the trees are already
// canonically encoded in (pkg/tree), and reporting added, removed, and
// modified paths.
package diff

import (
	"context"
	"fmt"

	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/repository"
	"github.com/cuemby/strata/pkg/tree"
)

// ChangeKind classifies one path's difference between two snapshots.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Removed  ChangeKind = "removed"
	Modified ChangeKind = "modified"
)

// Change describes one differing path.
type Change struct {
	Path string
	Kind ChangeKind
}

// Stats sums the file sizes of entries added, removed or modified between
// two snapshots; a modified entry counts its whole old size as removed and
// its whole new size as added.
type Stats struct {
	BytesAdded   uint64
	BytesRemoved uint64
}

// Run walks snapshot ids a and b's root trees in lockstep and returns every
// differing path plus an approximate byte-movement summary. It never
// mutates the repository.
func Run(ctx context.Context, repo *repository.Repository, a, b ids.ID) ([]Change, Stats, error) {
	snapA, err := repo.LoadSnapshot(ctx, a)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("diff: loading snapshot %s: %w", a.Str(), err)
	}
	snapB, err := repo.LoadSnapshot(ctx, b)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("diff: loading snapshot %s: %w", b.Str(), err)
	}

	var changes []Change
	var stats Stats
	if err := diffTrees(ctx, repo, "", snapA.Tree, snapB.Tree, &changes, &stats); err != nil {
		return nil, Stats{}, err
	}
	return changes, stats, nil
}

func diffTrees(ctx context.Context, repo *repository.Repository, prefix string, treeA, treeB ids.ID, changes *[]Change, stats *Stats) error {
	if treeA.Equal(treeB) {
		return nil
	}

	a, err := loadTree(ctx, repo, treeA)
	if err != nil {
		return err
	}
	b, err := loadTree(ctx, repo, treeB)
	if err != nil {
		return err
	}

	i, j := 0, 0
	for i < len(a.Entries) || j < len(b.Entries) {
		switch {
		case j >= len(b.Entries) || (i < len(a.Entries) && a.Entries[i].Name < b.Entries[j].Name):
			path := joinPath(prefix, a.Entries[i].Name)
			*changes = append(*changes, Change{Path: path, Kind: Removed})
			stats.BytesRemoved += entrySize(a.Entries[i])
			i++

		case i >= len(a.Entries) || a.Entries[i].Name > b.Entries[j].Name:
			path := joinPath(prefix, b.Entries[j].Name)
			*changes = append(*changes, Change{Path: path, Kind: Added})
			stats.BytesAdded += entrySize(b.Entries[j])
			j++

		default:
			ea, eb := a.Entries[i], b.Entries[j]
			path := joinPath(prefix, ea.Name)
			switch {
			case ea.Kind == tree.KindDir && eb.Kind == tree.KindDir:
				if err := diffTrees(ctx, repo, path, ea.Subtree, eb.Subtree, changes, stats); err != nil {
					return err
				}
			case ea.Kind != eb.Kind || !sameContent(ea, eb):
				*changes = append(*changes, Change{Path: path, Kind: Modified})
				stats.BytesRemoved += entrySize(ea)
				stats.BytesAdded += entrySize(eb)
			}
			i++
			j++
		}
	}
	return nil
}

func sameContent(a, b tree.Entry) bool {
	if len(a.Chunks) != len(b.Chunks) {
		return false
	}
	for i := range a.Chunks {
		if !a.Chunks[i].Equal(b.Chunks[i]) {
			return false
		}
	}
	return a.Target == b.Target
}

func entrySize(e tree.Entry) uint64 {
	if e.Kind == tree.KindFile {
		return e.Size
	}
	return 0
}

func loadTree(ctx context.Context, repo *repository.Repository, id ids.ID) (tree.Tree, error) {
	data, err := repo.LoadBlob(ctx, ids.KindTree, id)
	if err != nil {
		return tree.Tree{}, fmt.Errorf("diff: loading tree %s: %w", id.Str(), err)
	}
	return tree.Decode(data)
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
