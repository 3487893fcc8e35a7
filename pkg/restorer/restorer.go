// Package restorer implements resolve → traverse → prefetch → assemble →
// materialise (spec §4.8). Grounded on the restic reference file's
// StreamPack callback-per-blob shape for the fetch/assemble step, and on
// the teacher's executeContainer step sequencing (pull → mount → create →
// start → monitor, each step checked and short-circuited on error) for
// this package's content-then-metadata ordering per file.
package restorer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/log"
	"github.com/cuemby/strata/pkg/metrics"
	"github.com/cuemby/strata/pkg/repository"
	"github.com/cuemby/strata/pkg/snapshot"
	"github.com/cuemby/strata/pkg/tree"
)

// Options configures one restore run.
type Options struct {
	Includes []string
	Excludes []string
	// Concurrency bounds how many files are written at once; each file
	// separately prefetches up to prefetchWindow chunks ahead of its writer.
	Concurrency int
}

// Stats summarises one restore run.
type Stats struct {
	FilesRestored int
	DirsRestored  int
	BytesWritten  uint64
	Skipped       []SkipError
}

// SkipError records a path the restorer could not materialise.
type SkipError struct {
	Path string
	Err  error
}

// Restorer replays one snapshot's tree graph onto a target directory.
type Restorer struct {
	repo *repository.Repository
	opts Options
	sem  *semaphore.Weighted

	// restored maps a snapshot-relative path (as recorded by the
	// archiver's hardlink table, see tree.Entry.Target on a hardlink
	// entry) to the absolute path it was materialised at, so later
	// occurrences of the same inode can be linked instead of copied
	// (spec §4.8: "hardlinks ... materialised with link() when possible,
	// falling back to copy").
	restored   map[string]string
	restoredMu sync.Mutex

	statsMu sync.Mutex
	stats   Stats
}

// New constructs a Restorer.
func New(repo *repository.Repository, opts Options) *Restorer {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Restorer{
		repo:     repo,
		opts:     opts,
		sem:      semaphore.NewWeighted(int64(concurrency)),
		restored: make(map[string]string),
	}
}

// Restore resolves ref (a literal id, hex prefix, or "latest") and
// materialises it under target.
func (r *Restorer) Restore(ctx context.Context, ref, target string) (ids.ID, Stats, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RestoreDuration)

	snapID, snap, err := snapshot.Resolve(ctx, r.repo, ref)
	if err != nil {
		return ids.ID{}, r.stats, err
	}

	if err := os.MkdirAll(target, 0o755); err != nil {
		return snapID, r.stats, errs.Input(fmt.Sprintf("creating target %s", target), err)
	}

	rootData, err := r.repo.LoadBlob(ctx, ids.KindTree, snap.Tree)
	if err != nil {
		return snapID, r.stats, err
	}
	root, err := tree.Decode(rootData)
	if err != nil {
		return snapID, r.stats, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range root.Entries {
		e := e
		g.Go(func() error {
			if err := r.restoreEntry(gctx, e, target, e.Name); err != nil {
				r.skip(filepath.Join(target, e.Name), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return snapID, r.stats, err
	}

	log.WithComponent("restorer").Info().
		Str("snapshot_id", snapID.Str()).
		Int("files_restored", r.stats.FilesRestored).
		Int("dirs_restored", r.stats.DirsRestored).
		Uint64("bytes_written", r.stats.BytesWritten).
		Msg("restore complete")

	return snapID, r.stats, nil
}

func (r *Restorer) skip(path string, err error) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	r.stats.Skipped = append(r.stats.Skipped, SkipError{Path: path, Err: err})
	log.WithComponent("restorer").Warn().Str("path", path).Err(err).Msg("skipping path")
}

func (r *Restorer) countFile(size uint64) {
	r.statsMu.Lock()
	r.stats.FilesRestored++
	r.stats.BytesWritten += size
	r.statsMu.Unlock()
	metrics.RestoreFilesRestored.Inc()
	metrics.RestoreBytesWritten.Add(float64(size))
}

func (r *Restorer) countDir() {
	r.statsMu.Lock()
	r.stats.DirsRestored++
	r.statsMu.Unlock()
}
