package restorer

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

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestRestorer_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	src := t.TempDir()

	content := make([]byte, 300*1024)
	for i := range content {
		content[i] = byte(i % 191)
	}
	writeFile(t, filepath.Join(src, "a.bin"), content)
	writeFile(t, filepath.Join(src, "nested", "b.txt"), []byte("nested content"))

	a := archiver.New(repo, archiver.Options{Paths: []string{src}, Hostname: "test-host"})
	snapID, _, err := a.Run(context.Background())
	require.NoError(t, err)

	target := t.TempDir()
	r := New(repo, Options{})
	gotSnapID, stats, err := r.Restore(context.Background(), snapID.Str(), target)
	require.NoError(t, err)
	require.Equal(t, snapID, gotSnapID)
	require.Empty(t, stats.Skipped)

	base := filepath.Base(src)
	require.Equal(t, content, readFile(t, filepath.Join(target, base, "a.bin")))
	require.Equal(t, []byte("nested content"), readFile(t, filepath.Join(target, base, "nested", "b.txt")))
}

func TestRestorer_LatestRef(t *testing.T) {
	repo := newTestRepo(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), []byte("first"))

	a := archiver.New(repo, archiver.Options{Paths: []string{src}, Hostname: "test-host"})
	_, _, err := a.Run(context.Background())
	require.NoError(t, err)

	writeFile(t, filepath.Join(src, "a.txt"), []byte("second"))
	a2 := archiver.New(repo, archiver.Options{Paths: []string{src}, Hostname: "test-host", FullScan: true})
	snap2, _, err := a2.Run(context.Background())
	require.NoError(t, err)

	target := t.TempDir()
	r := New(repo, Options{})
	gotSnapID, _, err := r.Restore(context.Background(), "latest", target)
	require.NoError(t, err)
	require.Equal(t, snap2, gotSnapID)
	require.Equal(t, []byte("second"), readFile(t, filepath.Join(target, filepath.Base(src), "a.txt")))
}

func TestRestorer_Symlink(t *testing.T) {
	repo := newTestRepo(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "real.txt"), []byte("i am real"))
	require.NoError(t, os.Symlink("real.txt", filepath.Join(src, "link.txt")))

	a := archiver.New(repo, archiver.Options{Paths: []string{src}, Hostname: "test-host"})
	snapID, _, err := a.Run(context.Background())
	require.NoError(t, err)

	target := t.TempDir()
	r := New(repo, Options{})
	_, _, err = r.Restore(context.Background(), snapID.Str(), target)
	require.NoError(t, err)

	linkPath := filepath.Join(target, filepath.Base(src), "link.txt")
	fi, err := os.Lstat(linkPath)
	require.NoError(t, err)
	require.True(t, fi.Mode()&os.ModeSymlink != 0)

	dest, err := os.Readlink(linkPath)
	require.NoError(t, err)
	require.Equal(t, "real.txt", dest)
}

func TestRestorer_Hardlink(t *testing.T) {
	repo := newTestRepo(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "first.txt"), []byte("shared content"))
	require.NoError(t, os.Link(filepath.Join(src, "first.txt"), filepath.Join(src, "second.txt")))

	a := archiver.New(repo, archiver.Options{Paths: []string{src}, Hostname: "test-host"})
	snapID, _, err := a.Run(context.Background())
	require.NoError(t, err)

	target := t.TempDir()
	r := New(repo, Options{})
	_, stats, err := r.Restore(context.Background(), snapID.Str(), target)
	require.NoError(t, err)
	require.Empty(t, stats.Skipped)

	base := filepath.Base(src)
	require.Equal(t, []byte("shared content"), readFile(t, filepath.Join(target, base, "first.txt")))
	require.Equal(t, []byte("shared content"), readFile(t, filepath.Join(target, base, "second.txt")))

	fi1, err := os.Stat(filepath.Join(target, base, "first.txt"))
	require.NoError(t, err)
	fi2, err := os.Stat(filepath.Join(target, base, "second.txt"))
	require.NoError(t, err)
	require.True(t, os.SameFile(fi1, fi2), "hardlinked files should restore as the same inode when link() succeeds")
}

func TestRestorer_ExcludeGlob(t *testing.T) {
	repo := newTestRepo(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "keep.txt"), []byte("keep me"))
	writeFile(t, filepath.Join(src, "skip.tmp"), []byte("skip me"))

	a := archiver.New(repo, archiver.Options{Paths: []string{src}, Hostname: "test-host"})
	snapID, _, err := a.Run(context.Background())
	require.NoError(t, err)

	target := t.TempDir()
	r := New(repo, Options{Excludes: []string{"*.tmp"}})
	_, _, err = r.Restore(context.Background(), snapID.Str(), target)
	require.NoError(t, err)

	base := filepath.Base(src)
	_, err = os.Stat(filepath.Join(target, base, "keep.txt"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(target, base, "skip.tmp"))
	require.True(t, os.IsNotExist(err))
}

func TestRestorer_MetadataApplied(t *testing.T) {
	repo := newTestRepo(t)
	src := t.TempDir()
	path := filepath.Join(src, "perms.txt")
	writeFile(t, path, []byte("content"))
	require.NoError(t, os.Chmod(path, 0o640))

	a := archiver.New(repo, archiver.Options{Paths: []string{src}, Hostname: "test-host"})
	snapID, _, err := a.Run(context.Background())
	require.NoError(t, err)

	target := t.TempDir()
	r := New(repo, Options{})
	_, _, err = r.Restore(context.Background(), snapID.Str(), target)
	require.NoError(t, err)

	fi, err := os.Stat(filepath.Join(target, filepath.Base(src), "perms.txt"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o640), fi.Mode().Perm())
}
