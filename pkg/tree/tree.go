// Package tree implements the canonical, deterministically-encoded
// directory listing strata hashes and stores as one blob per directory
// (spec §3, §6). Grounded on the teacher's JSON-tagged entity structs
// (pkg/types/types.go) generalized from cluster entities to filesystem
// entries, with sort-by-name added for the canonical ordering spec §5
// requires.
package tree

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
)

// Kind identifies the filesystem entity a tree entry represents.
type Kind string

const (
	KindFile     Kind = "file"
	KindDir      Kind = "dir"
	KindSymlink  Kind = "symlink"
	KindHardlink Kind = "hardlink" // a later occurrence of an inode already stored in this snapshot
	KindDevice   Kind = "device"
	KindFifo     Kind = "fifo"
)

// Entry is one directory member. Field presence varies by Kind: Chunks and
// Size apply to files, Subtree to directories, Target to symlinks and
// hardlinks, DevMajor/DevMinor to device nodes.
type Entry struct {
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Mode      uint32    `json:"mode"`
	UID       uint32    `json:"uid"`
	GID       uint32    `json:"gid"`
	User      string    `json:"user,omitempty"`
	Group     string    `json:"group,omitempty"`
	Mtime     time.Time `json:"mtime"`
	Atime     time.Time `json:"atime,omitempty"`
	Ctime     time.Time `json:"ctime,omitempty"`
	Size      uint64    `json:"size,omitempty"`
	Target    string    `json:"target,omitempty"`    // symlink target, or hardlink's referent path
	Chunks    []ids.ID  `json:"chunks,omitempty"`     // file content, in offset order
	Subtree   ids.ID    `json:"subtree,omitzero"`     // directory's child tree hash
	DevMajor  uint32    `json:"dev_major,omitempty"`
	DevMinor  uint32    `json:"dev_minor,omitempty"`
}

// Tree is the canonical encoding of one directory's contents.
type Tree struct {
	FormatVersion int     `json:"format_version"`
	Entries       []Entry `json:"entries"`
}

// New returns a Tree with entries sorted into canonical order.
func New(entries []Entry) Tree {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sortEntries(sorted)
	return Tree{FormatVersion: 1, Entries: sorted}
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}

// Encode canonically serialises t. Entries are sorted by name first so
// encoding the same logical directory always produces the same bytes,
// hence the same hash (spec §8 property 2: determinism).
func Encode(t Tree) ([]byte, error) {
	sortEntries(t.Entries)
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("tree: encoding: %w", err)
	}
	return data, nil
}

// Decode parses a tree object's plaintext bytes.
func Decode(data []byte) (Tree, error) {
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return Tree{}, errs.CorruptRepository("decoding tree object", err)
	}
	return t, nil
}

// Find returns the entry with the given name, if present. Trees are kept
// sorted by New/Encode so this could binary search, but directories are
// small enough in practice that a linear scan stays simple and is what the
// differ actually calls on (one lookup per scanned sibling, not per byte).
func (t Tree) Find(name string) (Entry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
