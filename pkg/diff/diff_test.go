package diff

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/strata/pkg/archiver"
	"github.com/cuemby/strata/pkg/repository"
)

func newTestRepo(t *testing.T) *repository.Repository {
	t.Helper()
	url := "file://" + t.TempDir()
	ctx := context.Background()
	r, err := repository.Init(ctx, url, []byte("correct-horse-battery-staple"))
	require.NoError(t, err)
	require.NoError(t, r.Lock(ctx))
	t.Cleanup(func() {
		_ = r.Unlock(ctx)
		_ = r.Close()
	})
	return r
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestDiff_DetectsAddedRemovedModified(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	src := t.TempDir()

	writeFile(t, filepath.Join(src, "stays.txt"), []byte("unchanged"))
	writeFile(t, filepath.Join(src, "removed.txt"), []byte("going away"))
	writeFile(t, filepath.Join(src, "modified.txt"), []byte("before"))

	a := archiver.New(repo, archiver.Options{Paths: []string{src}, Hostname: "test-host"})
	snap1, _, err := a.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(src, "removed.txt")))
	require.NoError(t, os.WriteFile(filepath.Join(src, "modified.txt"), []byte("after, and longer"), 0o644))
	writeFile(t, filepath.Join(src, "added.txt"), []byte("brand new"))

	a2 := archiver.New(repo, archiver.Options{Paths: []string{src}, Hostname: "test-host", Parent: snap1, FullScan: true})
	snap2, _, err := a2.Run(ctx)
	require.NoError(t, err)

	base := filepath.Base(src)
	changes, stats, err := Run(ctx, repo, snap1, snap2)
	require.NoError(t, err)

	byPath := make(map[string]ChangeKind)
	for _, c := range changes {
		byPath[c.Path] = c.Kind
	}
	require.Equal(t, Removed, byPath[base+"/removed.txt"])
	require.Equal(t, Modified, byPath[base+"/modified.txt"])
	require.Equal(t, Added, byPath[base+"/added.txt"])
	_, stayed := byPath[base+"/stays.txt"]
	require.False(t, stayed)

	require.Greater(t, stats.BytesAdded, uint64(0))
	require.Greater(t, stats.BytesRemoved, uint64(0))
}

func TestDiff_IdenticalSnapshotsProduceNoChanges(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), []byte("hello"))

	a := archiver.New(repo, archiver.Options{Paths: []string{src}, Hostname: "test-host"})
	snapID, _, err := a.Run(ctx)
	require.NoError(t, err)

	changes, stats, err := Run(ctx, repo, snapID, snapID)
	require.NoError(t, err)
	require.Empty(t, changes)
	require.Zero(t, stats.BytesAdded)
	require.Zero(t, stats.BytesRemoved)
}
