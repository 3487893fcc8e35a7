package tree

import "sync"

// inodeKey identifies a file on one filesystem by (device, inode number),
// the traditional hardlink identity.
type inodeKey struct {
	Device uint64
	Inode  uint64
}

// HardlinkTable tracks, for one archive run, which inode each hardlinked
// file's content was first stored under. Later occurrences become
// KindHardlink entries pointing at the first path instead of duplicating
// the chunk list (spec §9 open question: "preserve hardlinks via an
// inode-id table within a single snapshot").
type HardlinkTable struct {
	mu   sync.Mutex
	seen map[inodeKey]string
}

// NewHardlinkTable returns an empty table, scoped to one archiver run.
func NewHardlinkTable() *HardlinkTable {
	return &HardlinkTable{seen: make(map[inodeKey]string)}
}

// SeenOrRecord returns the path the (device, inode) pair was first stored
// under, and whether this is a repeat occurrence. If it is the first
// occurrence, path is recorded and ok is false.
func (h *HardlinkTable) SeenOrRecord(device, inode uint64, path string) (firstPath string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := inodeKey{Device: device, Inode: inode}
	if existing, found := h.seen[key]; found {
		return existing, true
	}
	h.seen[key] = path
	return path, false
}
