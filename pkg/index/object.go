package index

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuemby/strata/pkg/backend"
	"github.com/cuemby/strata/pkg/crypto"
	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/log"
	"github.com/cuemby/strata/pkg/pack"
)

// entryJSON is the JSON wire shape for one manifest entry inside a
// persisted index object.
type entryJSON struct {
	ID       ids.ID   `json:"id"`
	Kind     ids.Kind `json:"kind"`
	Offset   uint64   `json:"offset"`
	EncLen   uint32   `json:"enc_len"`
	PlainLen uint32   `json:"plain_len"`
}

type packEntryGroup struct {
	PackID  ids.ID      `json:"pack_id"`
	Entries []entryJSON `json:"entries"`
}

type objectFormat struct {
	FormatVersion int              `json:"format_version"`
	Packs         []packEntryGroup `json:"packs"`
}

// Encode serialises a pack-id → entries map into an index object's
// plaintext bytes (before AEAD sealing by the object store).
func Encode(byPack map[ids.ID][]pack.Entry) ([]byte, error) {
	obj := objectFormat{FormatVersion: 1}
	for packID, entries := range byPack {
		group := packEntryGroup{PackID: packID}
		for _, e := range entries {
			group.Entries = append(group.Entries, entryJSON{
				ID: e.ID, Kind: e.Kind, Offset: e.Offset, EncLen: e.EncLen, PlainLen: e.PlainLen,
			})
		}
		obj.Packs = append(obj.Packs, group)
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("index: encoding index object: %w", err)
	}
	return data, nil
}

// Decode parses an index object's plaintext bytes back into a pack-id →
// entries map.
func Decode(data []byte) (map[ids.ID][]pack.Entry, error) {
	var obj objectFormat
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, errs.CorruptRepository("decoding index object", err)
	}
	out := make(map[ids.ID][]pack.Entry, len(obj.Packs))
	for _, group := range obj.Packs {
		entries := make([]pack.Entry, len(group.Entries))
		for i, e := range group.Entries {
			entries[i] = pack.Entry{ID: e.ID, Kind: e.Kind, Offset: e.Offset, EncLen: e.EncLen, PlainLen: e.PlainLen}
		}
		out[group.PackID] = entries
	}
	return out, nil
}

// Load builds an Index by reading every persisted index object, then
// reconciling against the backend's actual pack listing: any pack with no
// index coverage has its manifest opened directly and folded in (spec
// §4.5). It returns the index, the ids of any index objects it loaded, and
// the ids of packs it had to rebuild coverage for (the caller should
// persist a fresh index object covering those before considering open
// complete).
func Load(ctx context.Context, be backend.Backend, sealer *crypto.Sealer) (*Index, []ids.ID, []ids.ID, error) {
	idx := New()

	indexIDs, err := be.List(ctx, ids.KindIndex)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("index: listing index objects: %w", err)
	}

	for _, indexID := range indexIDs {
		sealed, err := be.Get(ctx, ids.KindIndex, indexID, 0, -1)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("index: fetching index object %s: %w", indexID.Str(), err)
		}
		plain, err := sealer.Open(ids.KindIndex, indexID, sealed)
		if err != nil {
			return nil, nil, nil, err
		}
		byPack, err := Decode(plain)
		if err != nil {
			return nil, nil, nil, err
		}
		for packID, entries := range byPack {
			idx.AddPack(packID, entries)
		}
	}

	packIDs, err := be.List(ctx, ids.KindPack)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("index: listing packs: %w", err)
	}

	reader := pack.NewReader(be, sealer)
	var rebuilt []ids.ID
	for _, packID := range packIDs {
		if idx.HasPack(packID) {
			continue
		}
		log.Logger.Warn().Str("pack_id", packID.Str()).Msg("index: pack has no coverage, rebuilding from manifest")
		entries, err := reader.Manifest(ctx, packID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("index: rebuilding coverage for pack %s: %w", packID.Str(), err)
		}
		idx.AddPack(packID, entries)
		rebuilt = append(rebuilt, packID)
	}

	return idx, indexIDs, rebuilt, nil
}
