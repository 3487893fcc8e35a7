package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
)

func newTestLocal(t *testing.T) Backend {
	t.Helper()
	b, err := newLocal(t.TempDir())
	require.NoError(t, err)
	return b
}

func TestLocal_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newTestLocal(t)

	data := []byte("hello strata")
	id := ids.Hash(data)

	require.NoError(t, b.Put(ctx, ids.KindSnapshot, id, data))

	got, err := b.Get(ctx, ids.KindSnapshot, id, 0, -1)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestLocal_PutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b := newTestLocal(t)
	data := []byte("idempotent")
	id := ids.Hash(data)

	require.NoError(t, b.Put(ctx, ids.KindSnapshot, id, data))
	require.NoError(t, b.Put(ctx, ids.KindSnapshot, id, data))
}

func TestLocal_RangedGet(t *testing.T) {
	ctx := context.Background()
	b := newTestLocal(t)
	data := []byte("0123456789")
	id := ids.Hash(data)
	require.NoError(t, b.Put(ctx, ids.KindPack, id, data))

	got, err := b.Get(ctx, ids.KindPack, id, 3, 4)
	require.NoError(t, err)
	require.Equal(t, []byte("3456"), got)
}

func TestLocal_List(t *testing.T) {
	ctx := context.Background()
	b := newTestLocal(t)

	var want []ids.ID
	for i := 0; i < 5; i++ {
		data := []byte{byte(i)}
		id := ids.Hash(data)
		require.NoError(t, b.Put(ctx, ids.KindIndex, id, data))
		want = append(want, id)
	}

	got, err := b.List(ctx, ids.KindIndex)
	require.NoError(t, err)
	require.Len(t, got, len(want))
}

func TestLocal_RemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b := newTestLocal(t)
	id := ids.Hash([]byte("gone"))
	require.NoError(t, b.Remove(ctx, ids.KindSnapshot, id))
}

func TestLocal_LockExclusion(t *testing.T) {
	ctx := context.Background()
	b := newTestLocal(t)

	lock, err := b.AcquireLock(ctx, "holder-a", time.Hour)
	require.NoError(t, err)

	_, err = b.AcquireLock(ctx, "holder-b", time.Hour)
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindRepositoryLocked))

	require.NoError(t, b.ReleaseLock(ctx, lock))

	_, err = b.AcquireLock(ctx, "holder-b", time.Hour)
	require.NoError(t, err)
}

func TestLocal_StaleLockIsReplaced(t *testing.T) {
	ctx := context.Background()
	b := newTestLocal(t)

	_, err := b.AcquireLock(ctx, "holder-a", time.Nanosecond)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	_, err = b.AcquireLock(ctx, "holder-b", time.Nanosecond)
	require.NoError(t, err)
}
