package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/strata/pkg/ids"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	url := "file://" + t.TempDir()
	ctx := context.Background()
	r, err := Init(ctx, url, []byte("correct-horse-battery-staple"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestInitOpen_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	url := "file://" + dir
	ctx := context.Background()

	r, err := Init(ctx, url, []byte("hunter2"))
	require.NoError(t, err)
	cfg := r.Config()
	require.NoError(t, r.Close())

	opened, err := Open(ctx, url, []byte("hunter2"), "")
	require.NoError(t, err)
	defer opened.Close()

	require.Equal(t, cfg.RepositoryID, opened.Config().RepositoryID)
}

func TestOpen_WrongPasswordFails(t *testing.T) {
	dir := t.TempDir()
	url := "file://" + dir
	ctx := context.Background()

	r, err := Init(ctx, url, []byte("hunter2"))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = Open(ctx, url, []byte("wrong"), "")
	require.Error(t, err)
}

func TestInit_RefusesExisting(t *testing.T) {
	dir := t.TempDir()
	url := "file://" + dir
	ctx := context.Background()

	r, err := Init(ctx, url, []byte("hunter2"))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = Init(ctx, url, []byte("hunter2"))
	require.Error(t, err)
}

func TestStoreLoadBlob_Dedup(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	data := []byte("some file content that becomes a chunk")
	id1, err := r.StoreBlob(ctx, ids.KindData, data)
	require.NoError(t, err)

	id2, err := r.StoreBlob(ctx, ids.KindData, data)
	require.NoError(t, err)
	require.Equal(t, id1, id2)
	require.Equal(t, 1, r.Index().Len())

	packIDs, err := r.FlushPacks(ctx)
	require.NoError(t, err)
	require.Len(t, packIDs, 1)

	_, err = r.WriteIndex(ctx, packIDs)
	require.NoError(t, err)

	got, err := r.LoadBlob(ctx, ids.KindData, id1)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestLockExclusion(t *testing.T) {
	dir := t.TempDir()
	url := "file://" + dir
	ctx := context.Background()

	r1, err := Init(ctx, url, []byte("hunter2"))
	require.NoError(t, err)
	defer r1.Close()
	require.NoError(t, r1.Lock(ctx))

	r2, err := Open(ctx, url, []byte("hunter2"), "")
	require.NoError(t, err)
	defer r2.Close()

	err = r2.Lock(ctx)
	require.Error(t, err)

	require.NoError(t, r1.Unlock(ctx))
	require.NoError(t, r2.Lock(ctx))
	require.NoError(t, r2.Unlock(ctx))
}

func TestAddKey_AllowsBothPasswordsToOpen(t *testing.T) {
	dir := t.TempDir()
	url := "file://" + dir
	ctx := context.Background()

	r, err := Init(ctx, url, []byte("first-password"))
	require.NoError(t, err)
	_, err = r.AddKey(ctx, []byte("second-password"))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	r1, err := Open(ctx, url, []byte("first-password"), "")
	require.NoError(t, err)
	require.NoError(t, r1.Close())

	r2, err := Open(ctx, url, []byte("second-password"), "")
	require.NoError(t, err)
	require.NoError(t, r2.Close())
}

func TestRemoveKey_RefusesLastKey(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	keys, err := r.ListKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	err = r.RemoveKey(ctx, keys[0])
	require.Error(t, err)
}

func TestListSnapshotIDs_EmptyWithoutSnapshot(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	data := []byte("leaf content")
	_, err := r.StoreBlob(ctx, ids.KindData, data)
	require.NoError(t, err)
	packIDs, err := r.FlushPacks(ctx)
	require.NoError(t, err)
	_, err = r.WriteIndex(ctx, packIDs)
	require.NoError(t, err)

	snapIDs, err := r.ListSnapshotIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, snapIDs)
}
