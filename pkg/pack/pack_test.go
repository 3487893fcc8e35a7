package pack

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/strata/pkg/backend"
	"github.com/cuemby/strata/pkg/crypto"
	"github.com/cuemby/strata/pkg/ids"
)

func testSealer(t *testing.T) *crypto.Sealer {
	t.Helper()
	mk, err := crypto.NewMasterKey()
	require.NoError(t, err)
	s, err := crypto.NewSealer(mk)
	require.NoError(t, err)
	return s
}

func TestWriterReader_RoundTrip(t *testing.T) {
	ctx := context.Background()
	sealer := testSealer(t)

	w, err := NewWriter(sealer)
	require.NoError(t, err)

	blobs := [][]byte{[]byte("chunk one"), []byte("chunk two"), []byte("a third, longer chunk of bytes")}
	var ids_ []ids.ID
	for _, b := range blobs {
		id := ids.Hash(b)
		ids_ = append(ids_, id)
		require.NoError(t, w.Add(ids.KindData, id, b))
	}

	data, err := w.Finish()
	require.NoError(t, err)

	be, err := backend.Open(ctx, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, be.Put(ctx, ids.KindPack, w.ID(), data))

	r := NewReader(be, sealer)
	entries, err := r.Manifest(ctx, w.ID())
	require.NoError(t, err)
	require.Len(t, entries, len(blobs))

	byID := make(map[ids.ID]Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	for i, want := range blobs {
		e, ok := byID[ids_[i]]
		require.True(t, ok)
		got, err := r.Blob(ctx, w.ID(), e)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestReader_TamperedBlobFailsAuthentication(t *testing.T) {
	ctx := context.Background()
	sealer := testSealer(t)

	w, err := NewWriter(sealer)
	require.NoError(t, err)
	plain := []byte("tamper me")
	id := ids.Hash(plain)
	require.NoError(t, w.Add(ids.KindData, id, plain))
	data, err := w.Finish()
	require.NoError(t, err)

	data[0] ^= 0xFF // flip a bit inside the first sealed blob

	be, err := backend.Open(ctx, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, be.Put(ctx, ids.KindPack, w.ID(), data))

	r := NewReader(be, sealer)
	entries, err := r.Manifest(ctx, w.ID())
	require.NoError(t, err)
	_, err = r.Blob(ctx, w.ID(), entries[0])
	require.Error(t, err)
}

func TestWriter_StreamPack(t *testing.T) {
	ctx := context.Background()
	sealer := testSealer(t)

	w, err := NewWriter(sealer)
	require.NoError(t, err)
	blobs := [][]byte{[]byte("x"), []byte("yy"), []byte("zzz")}
	for _, b := range blobs {
		require.NoError(t, w.Add(ids.KindData, ids.Hash(b), b))
	}
	data, err := w.Finish()
	require.NoError(t, err)

	be, err := backend.Open(ctx, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, be.Put(ctx, ids.KindPack, w.ID(), data))

	r := NewReader(be, sealer)
	entries, err := r.Manifest(ctx, w.ID())
	require.NoError(t, err)

	seen := make(map[ids.ID][]byte)
	err = r.StreamPack(ctx, w.ID(), entries, func(e Entry, pt []byte) error {
		seen[e.ID] = pt
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, len(blobs))
}
