// Package ids defines the 32-byte content hash identifier used throughout
// strata to name blobs, trees, snapshots, packs and index objects.
package ids

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Size is the length in bytes of an ID.
const Size = 32

// Kind identifies the category of a content-addressed object. It doubles as
// the backend's flat-namespace partition (§4.1) and the AEAD associated-data
// tag binding ciphertext to the kind of thing it decrypts to (§4.2).
type Kind byte

const (
	KindData     Kind = iota // a chunk of file content
	KindTree                 // a directory listing
	KindSnapshot             // a snapshot record
	KindIndex                // an index object
	KindConfig               // the repository config object
	KindKey                  // a wrapped master key object
	KindPack                 // a pack file (backend namespace only, not AEAD'd as a whole)
	KindLock                 // a lock object (backend namespace only)
)

// String renders a Kind as the lowercase name used in backend paths.
func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindTree:
		return "tree"
	case KindSnapshot:
		return "snapshot"
	case KindIndex:
		return "index"
	case KindConfig:
		return "config"
	case KindKey:
		return "key"
	case KindPack:
		return "pack"
	case KindLock:
		return "lock"
	default:
		return "unknown"
	}
}

// ID is the content hash of an object's plaintext bytes.
type ID [Size]byte

// Nil is the zero ID, used as a sentinel for "no parent" / "no value".
var Nil ID

// Hash computes the content ID of data using the fixed hash function
// strata uses repository-wide: BLAKE2b-256.
func Hash(data []byte) ID {
	return ID(blake2b.Sum256(data))
}

// String renders the ID as lowercase hex.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Str is a short, human-friendly 8-character prefix, used in log lines and
// CLI tables the way restic prints truncated ids.
func (id ID) Str() string {
	return id.String()[:8]
}

// IsNil reports whether id is the zero value.
func (id ID) IsNil() bool {
	return id == Nil
}

// Equal reports whether two IDs are identical.
func (id ID) Equal(other ID) bool {
	return bytes.Equal(id[:], other[:])
}

// Compare orders IDs lexicographically by their bytes, used for the
// canonical, deterministic ordering of tree entries and chunk lists.
func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

// MarshalJSON encodes the ID as a hex string.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON decodes a hex string into the ID.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Parse decodes a hex string into an ID. It requires a full-length,
// exact hex string; use FindUnique for prefix lookups.
func Parse(s string) (ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, fmt.Errorf("ids: invalid hex %q: %w", s, err)
	}
	if len(b) != Size {
		return ID{}, fmt.Errorf("ids: wrong length for %q: got %d bytes, want %d", s, len(b), Size)
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

// HasPrefix reports whether id's hex string starts with prefix.
func (id ID) HasPrefix(prefix string) bool {
	full := id.String()
	if len(prefix) > len(full) {
		return false
	}
	return full[:len(prefix)] == prefix
}

// Set is an unordered collection of IDs supporting membership tests, used by
// the garbage collector's mark phase and by index construction.
type Set map[ID]struct{}

// NewSet builds a Set from a slice of IDs.
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Insert(id ID)         { s[id] = struct{}{} }
func (s Set) Has(id ID) bool       { _, ok := s[id]; return ok }
func (s Set) Delete(id ID)         { delete(s, id) }
func (s Set) Len() int             { return len(s) }

// List returns the set's members sorted by ID, for deterministic output.
func (s Set) List() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}
