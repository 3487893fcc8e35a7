package pack

import (
	"context"
	"fmt"
	"sort"

	"github.com/cuemby/strata/pkg/backend"
	"github.com/cuemby/strata/pkg/crypto"
	"github.com/cuemby/strata/pkg/ids"
)

// Reader fetches and decrypts blobs from packs already written to a
// backend, given their (pack, offset, length) location from the index.
type Reader struct {
	be     backend.Backend
	sealer *crypto.Sealer
}

// NewReader constructs a Reader over be, decrypting with sealer.
func NewReader(be backend.Backend, sealer *crypto.Sealer) *Reader {
	return &Reader{be: be, sealer: sealer}
}

// Manifest fetches and decodes a pack's manifest: first its footer (a
// ranged read using the pack's total size from Stat), then the manifest
// bytes it points to.
func (r *Reader) Manifest(ctx context.Context, packID ids.ID) ([]Entry, error) {
	size, err := r.be.Stat(ctx, ids.KindPack, packID)
	if err != nil {
		return nil, fmt.Errorf("pack: stating %s: %w", packID.Str(), err)
	}
	if size < footerSize {
		return nil, fmt.Errorf("pack: %s too small to contain a footer", packID.Str())
	}

	footerBytes, err := r.be.Get(ctx, ids.KindPack, packID, size-footerSize, footerSize)
	if err != nil {
		return nil, fmt.Errorf("pack: reading footer of %s: %w", packID.Str(), err)
	}
	f, err := decodeFooter(footerBytes, packID)
	if err != nil {
		return nil, err
	}

	sealedManifest, err := r.be.Get(ctx, ids.KindPack, packID, int64(f.manifestOffset), int64(f.manifestLength))
	if err != nil {
		return nil, fmt.Errorf("pack: reading manifest of %s: %w", packID.Str(), err)
	}
	manifestPlain, err := r.sealer.OpenManifest(packID, sealedManifest)
	if err != nil {
		return nil, err
	}
	return decodeManifest(manifestPlain)
}

// Blob fetches and decrypts one blob given its location, verifying the
// plaintext hashes back to id (spec §4.4's reader contract).
func (r *Reader) Blob(ctx context.Context, packID ids.ID, e Entry) ([]byte, error) {
	sealed, err := r.be.Get(ctx, ids.KindPack, packID, int64(e.Offset), int64(e.EncLen))
	if err != nil {
		return nil, fmt.Errorf("pack: reading blob %s from %s: %w", e.ID.Str(), packID.Str(), err)
	}
	return r.sealer.Open(e.Kind, e.ID, sealed)
}

// StreamPack fetches every blob in a pack in a single ranged read spanning
// from the first to last blob offset, then slices and decrypts each one —
// avoiding one round trip per blob when most of a pack's content is
// wanted (e.g. by GC repack). Grounded on restic's
// StreamPack in the retrieval pack's repository.go.
func (r *Reader) StreamPack(ctx context.Context, packID ids.ID, entries []Entry, onBlob func(Entry, []byte) error) error {
	if len(entries) == 0 {
		return nil
	}
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	first := sorted[0]
	last := sorted[len(sorted)-1]
	spanLen := int64(last.Offset+uint64(last.EncLen)) - int64(first.Offset)

	span, err := r.be.Get(ctx, ids.KindPack, packID, int64(first.Offset), spanLen)
	if err != nil {
		return fmt.Errorf("pack: reading span of %s: %w", packID.Str(), err)
	}

	for _, e := range sorted {
		start := int64(e.Offset) - int64(first.Offset)
		sealed := span[start : start+int64(e.EncLen)]
		pt, err := r.sealer.Open(e.Kind, e.ID, sealed)
		if err != nil {
			return err
		}
		if err := onBlob(e, pt); err != nil {
			return err
		}
	}
	return nil
}
