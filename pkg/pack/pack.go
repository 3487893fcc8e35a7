// Package pack implements the on-disk pack file format (spec §4.4, §6):
// a sequence of AEAD-sealed blobs, a sealed manifest describing them, and a
// fixed footer locating the manifest. Grounded on the read-path shape of
// restic's StreamPack (sort-by-offset, single ranged read, per-blob
// decrypt-then-hash-check) from the retrieval pack's repository.go.
package pack

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/cuemby/strata/pkg/crypto"
	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
)

const (
	// SoftCap is the target pack size; the repository flushes the current
	// pack once its buffered sealed bytes reach it, so a pack can exceed it
	// by up to one blob (spec §4.4).
	SoftCap = 16 * 1024 * 1024

	magic         = "STR1"
	formatVersion = 1
	footerSize    = 4 + 1 + 8 + 8 // magic + version + offset(u64) + length(u64)
)

// Entry describes one blob's location and sizes within a pack, the unit
// the index stores per content hash.
type Entry struct {
	ID        ids.ID
	Kind      ids.Kind
	Offset    uint64
	EncLen    uint32
	PlainLen  uint32
}

const entrySize = ids.Size + 1 + 8 + 4 + 4

// Writer accumulates sealed blobs into one pack's byte buffer. A Writer is
// not safe for concurrent use; the repository's StoreBlob serialises
// access to the in-progress pack under its mutex, the way a single packer
// manager would (restic's packerManager plays the same role).
type Writer struct {
	sealer *crypto.Sealer
	id     ids.ID
	buf    bytes.Buffer
	entries []Entry
}

// NewWriter starts a new pack with a fresh random id (see DESIGN.md for why
// the id is random rather than content-derived).
func NewWriter(sealer *crypto.Sealer) (*Writer, error) {
	var id ids.ID
	if _, err := io.ReadFull(rand.Reader, id[:]); err != nil {
		return nil, fmt.Errorf("pack: generating pack id: %w", err)
	}
	return &Writer{sealer: sealer, id: id}, nil
}

// ID returns this pack's storage id.
func (w *Writer) ID() ids.ID { return w.id }

// Size returns the number of plaintext+overhead bytes buffered so far,
// used by the caller to decide when to flush against SoftCap.
func (w *Writer) Size() int { return w.buf.Len() }

// Add seals plaintext and appends it to the pack, recording a manifest
// entry (its offset is available through Entries).
func (w *Writer) Add(kind ids.Kind, id ids.ID, plaintext []byte) error {
	sealed, err := w.sealer.Seal(kind, id, plaintext)
	if err != nil {
		return fmt.Errorf("pack: sealing blob %s: %w", id.Str(), err)
	}
	offset := uint64(w.buf.Len())
	if _, err := w.buf.Write(sealed); err != nil {
		return fmt.Errorf("pack: buffering blob %s: %w", id.Str(), err)
	}
	w.entries = append(w.entries, Entry{
		ID:       id,
		Kind:     kind,
		Offset:   offset,
		EncLen:   uint32(len(sealed)),
		PlainLen: uint32(len(plaintext)),
	})
	return nil
}

// Entries returns the manifest entries added so far, for the index to
// consume without re-parsing the finished pack.
func (w *Writer) Entries() []Entry {
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Empty reports whether any blob has been added.
func (w *Writer) Empty() bool { return len(w.entries) == 0 }

// Finish seals the manifest, appends the footer, and returns the complete
// pack bytes ready to Put to the backend.
func (w *Writer) Finish() ([]byte, error) {
	manifestPlain := encodeManifest(w.entries)
	sealedManifest, err := w.sealer.SealManifest(w.id, manifestPlain)
	if err != nil {
		return nil, fmt.Errorf("pack: sealing manifest: %w", err)
	}

	manifestOffset := uint64(w.buf.Len())
	if _, err := w.buf.Write(sealedManifest); err != nil {
		return nil, fmt.Errorf("pack: writing manifest: %w", err)
	}

	footer := make([]byte, footerSize)
	copy(footer[0:4], magic)
	footer[4] = formatVersion
	binary.LittleEndian.PutUint64(footer[5:13], manifestOffset)
	binary.LittleEndian.PutUint64(footer[13:21], uint64(len(sealedManifest)))
	if _, err := w.buf.Write(footer); err != nil {
		return nil, fmt.Errorf("pack: writing footer: %w", err)
	}

	return w.buf.Bytes(), nil
}

// encodeManifest serialises entries in a fixed, sorted order (by id) so the
// same set of blobs always produces the same manifest bytes.
func encodeManifest(entries []Entry) []byte {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID.Compare(sorted[j].ID) < 0 })

	buf := make([]byte, 0, len(sorted)*entrySize)
	for _, e := range sorted {
		row := make([]byte, entrySize)
		copy(row[0:ids.Size], e.ID[:])
		row[ids.Size] = byte(e.Kind)
		binary.LittleEndian.PutUint64(row[ids.Size+1:ids.Size+9], e.Offset)
		binary.LittleEndian.PutUint32(row[ids.Size+9:ids.Size+13], e.EncLen)
		binary.LittleEndian.PutUint32(row[ids.Size+13:ids.Size+17], e.PlainLen)
		buf = append(buf, row...)
	}
	return buf
}

func decodeManifest(data []byte) ([]Entry, error) {
	if len(data)%entrySize != 0 {
		return nil, errs.CorruptRepository(
			fmt.Sprintf("manifest length %d not a multiple of entry size %d", len(data), entrySize), nil)
	}
	n := len(data) / entrySize
	entries := make([]Entry, n)
	for i := 0; i < n; i++ {
		row := data[i*entrySize : (i+1)*entrySize]
		var e Entry
		copy(e.ID[:], row[0:ids.Size])
		e.Kind = ids.Kind(row[ids.Size])
		e.Offset = binary.LittleEndian.Uint64(row[ids.Size+1 : ids.Size+9])
		e.EncLen = binary.LittleEndian.Uint32(row[ids.Size+9 : ids.Size+13])
		e.PlainLen = binary.LittleEndian.Uint32(row[ids.Size+13 : ids.Size+17])
		entries[i] = e
	}
	return entries, nil
}

type footer struct {
	version        byte
	manifestOffset uint64
	manifestLength uint64
}

func decodeFooter(data []byte, packID ids.ID) (footer, error) {
	if len(data) != footerSize {
		return footer{}, errs.CorruptRepository(
			fmt.Sprintf("pack %s: footer has wrong size %d", packID.Str(), len(data)), nil)
	}
	if string(data[0:4]) != magic {
		return footer{}, errs.CorruptRepository(
			fmt.Sprintf("pack %s: bad magic", packID.Str()), nil)
	}
	return footer{
		version:        data[4],
		manifestOffset: binary.LittleEndian.Uint64(data[5:13]),
		manifestLength: binary.LittleEndian.Uint64(data[13:21]),
	}, nil
}
