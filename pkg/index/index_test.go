package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/pack"
)

func TestIndex_AddLookupContains(t *testing.T) {
	idx := New()
	packID := ids.Hash([]byte("pack"))
	blobID := ids.Hash([]byte("blob"))
	entry := pack.Entry{ID: blobID, Kind: ids.KindData, Offset: 0, EncLen: 40, PlainLen: 10}

	require.False(t, idx.Contains(blobID))

	idx.AddPack(packID, []pack.Entry{entry})

	require.True(t, idx.Contains(blobID))
	loc, ok := idx.Lookup(blobID)
	require.True(t, ok)
	require.Equal(t, packID, loc.PackID)
	require.True(t, idx.HasPack(packID))
}

func TestIndex_RemovePack(t *testing.T) {
	idx := New()
	packID := ids.Hash([]byte("pack"))
	blobID := ids.Hash([]byte("blob"))
	idx.AddPack(packID, []pack.Entry{{ID: blobID, Kind: ids.KindData}})

	idx.RemovePack(packID)

	require.False(t, idx.Contains(blobID))
	require.False(t, idx.HasPack(packID))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	packA := ids.Hash([]byte("a"))
	packB := ids.Hash([]byte("b"))
	byPack := map[ids.ID][]pack.Entry{
		packA: {{ID: ids.Hash([]byte("1")), Kind: ids.KindData, Offset: 0, EncLen: 10, PlainLen: 5}},
		packB: {{ID: ids.Hash([]byte("2")), Kind: ids.KindTree, Offset: 5, EncLen: 20, PlainLen: 15}},
	}

	data, err := Encode(byPack)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	require.ElementsMatch(t, byPack[packA], decoded[packA])
	require.ElementsMatch(t, byPack[packB], decoded[packB])
}
