package gc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/strata/pkg/archiver"
	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/repository"
	"github.com/cuemby/strata/pkg/restorer"
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

func TestGC_RemovesUnreferencedChunksAfterForget(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	src := t.TempDir()

	writeFile(t, filepath.Join(src, "keep.bin"), []byte("this content survives"))
	writeFile(t, filepath.Join(src, "doomed.bin"), []byte("this content is forgotten"))

	a := archiver.New(repo, archiver.Options{Paths: []string{src}, Hostname: "test-host"})
	snap1, _, err := a.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(src, "doomed.bin")))
	a2 := archiver.New(repo, archiver.Options{Paths: []string{src}, Hostname: "test-host", Parent: snap1, FullScan: true})
	snap2, _, err := a2.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, ForgetIDs(ctx, repo, []ids.ID{snap1}))

	stats, err := Run(ctx, repo)
	require.NoError(t, err)
	require.Greater(t, stats.BlobsReclaimed+int(stats.BytesReclaimed), 0)

	target := t.TempDir()
	r := restorer.New(repo, restorer.Options{})
	gotSnap, _, err := r.Restore(ctx, snap2.Str(), target)
	require.NoError(t, err)
	require.Equal(t, snap2, gotSnap)

	data, err := os.ReadFile(filepath.Join(target, filepath.Base(src), "keep.bin"))
	require.NoError(t, err)
	require.Equal(t, "this content survives", string(data))

	_, err = os.Stat(filepath.Join(target, filepath.Base(src), "doomed.bin"))
	require.True(t, os.IsNotExist(err))
}

func TestGC_KeepsEverythingWithNoForgottenSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), []byte("hello"))

	a := archiver.New(repo, archiver.Options{Paths: []string{src}, Hostname: "test-host"})
	snapID, _, err := a.Run(ctx)
	require.NoError(t, err)

	stats, err := Run(ctx, repo)
	require.NoError(t, err)
	require.Zero(t, stats.PacksDeleted)
	require.Zero(t, stats.PacksRepacked)

	target := t.TempDir()
	r := restorer.New(repo, restorer.Options{})
	_, _, err = r.Restore(ctx, snapID.Str(), target)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(target, filepath.Base(src), "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}
