package archiver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/repository"
	"github.com/cuemby/strata/pkg/tree"
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

func TestArchiver_EmptyDirectory(t *testing.T) {
	repo := newTestRepo(t)
	src := t.TempDir()

	a := New(repo, Options{Paths: []string{src}, Hostname: "test-host"})
	snapID, stats, err := a.Run(context.Background())
	require.NoError(t, err)
	require.False(t, snapID.IsNil())
	require.Zero(t, stats.BlobsNew)

	snapIDs, err := repo.ListSnapshotIDs(context.Background())
	require.NoError(t, err)
	require.Len(t, snapIDs, 1)
}

func TestArchiver_DedupsIdenticalFiles(t *testing.T) {
	repo := newTestRepo(t)
	src := t.TempDir()

	// Under chunker.MinSize so the spec's "shorter than min is a single
	// chunk" rule guarantees exactly one chunk per file, making the dedup
	// count deterministic without depending on FastCDC's cut behaviour.
	content := make([]byte, 64*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	writeFile(t, filepath.Join(src, "a.bin"), content)
	writeFile(t, filepath.Join(src, "b.bin"), content)

	a := New(repo, Options{Paths: []string{src}, Hostname: "test-host"})
	_, stats, err := a.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, stats.BlobsNew, "two identical files should produce exactly one new data blob")
	require.Equal(t, 1, stats.BlobsDeduped)
}

func TestArchiver_IncrementalReusesUnchangedFiles(t *testing.T) {
	repo := newTestRepo(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), []byte("hello world"))
	writeFile(t, filepath.Join(src, "b.txt"), []byte("unchanged forever"))

	a1 := New(repo, Options{Paths: []string{src}, Hostname: "test-host"})
	snap1, _, err := a1.Run(context.Background())
	require.NoError(t, err)

	writeFile(t, filepath.Join(src, "a.txt"), []byte("hello world, modified"))

	a2 := New(repo, Options{Paths: []string{src}, Hostname: "test-host", Parent: snap1})
	_, stats2, err := a2.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, stats2.FilesUnchanged, "b.txt should be recognised as unchanged")
	require.Equal(t, 1, stats2.FilesChanged)
}

func TestArchiver_DryRunWritesNothing(t *testing.T) {
	repo := newTestRepo(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), []byte("some content"))

	a := New(repo, Options{Paths: []string{src}, Hostname: "test-host", DryRun: true})
	snapID, stats, err := a.Run(context.Background())
	require.NoError(t, err)
	require.True(t, snapID.IsNil())
	require.Equal(t, 1, stats.FilesChanged)

	snapIDs, err := repo.ListSnapshotIDs(context.Background())
	require.NoError(t, err)
	require.Empty(t, snapIDs)
}

func TestArchiver_ExcludeGlob(t *testing.T) {
	repo := newTestRepo(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "keep.txt"), []byte("keep me"))
	writeFile(t, filepath.Join(src, "skip.tmp"), []byte("skip me"))

	a := New(repo, Options{Paths: []string{src}, Hostname: "test-host", Excludes: []string{"*.tmp"}})
	snapID, _, err := a.Run(context.Background())
	require.NoError(t, err)

	snap, err := repo.LoadSnapshot(context.Background(), snapID)
	require.NoError(t, err)
	rootData, err := repo.LoadBlob(context.Background(), ids.KindTree, snap.Tree)
	require.NoError(t, err)
	rootTree, err := tree.Decode(rootData)
	require.NoError(t, err)
	require.Len(t, rootTree.Entries, 1)

	srcEntry := rootTree.Entries[0]
	subtreeData, err := repo.LoadBlob(context.Background(), ids.KindTree, srcEntry.Subtree)
	require.NoError(t, err)
	subtree, err := tree.Decode(subtreeData)
	require.NoError(t, err)

	_, hasKeep := subtree.Find("keep.txt")
	_, hasSkip := subtree.Find("skip.tmp")
	require.True(t, hasKeep)
	require.False(t, hasSkip)
}
