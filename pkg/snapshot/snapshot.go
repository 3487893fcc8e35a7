// Package snapshot implements the snapshot record (spec §3, §6) and its
// resolution by literal id, hex prefix, or the "latest" keyword.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cuemby/strata/pkg/errs"
	"github.com/cuemby/strata/pkg/ids"
)

// Snapshot is the canonical, deterministically-encoded record naming one
// archive run: creation time, origin, the paths archived, and the root
// tree it produced.
type Snapshot struct {
	FormatVersion int       `json:"format_version"`
	Time          time.Time `json:"time"`
	Hostname      string    `json:"hostname"`
	Paths         []string  `json:"paths"`
	Tags          []string  `json:"tags,omitempty"`
	Description   string    `json:"description,omitempty"`
	Parent        ids.ID    `json:"parent,omitzero"`
	Tree          ids.ID    `json:"tree"`
}

// New returns a Snapshot with paths and tags sorted into canonical order
// (spec §6: "paths (sorted), tags (sorted)").
func New(paths, tags []string, hostname, description string, parent, tree ids.ID, at time.Time) Snapshot {
	sortedPaths := append([]string(nil), paths...)
	sort.Strings(sortedPaths)
	sortedTags := append([]string(nil), tags...)
	sort.Strings(sortedTags)
	return Snapshot{
		FormatVersion: 1,
		Time:          at.UTC(),
		Hostname:      hostname,
		Paths:         sortedPaths,
		Tags:          sortedTags,
		Description:   description,
		Parent:        parent,
		Tree:          tree,
	}
}

// Encode canonically serialises s.
func Encode(s Snapshot) ([]byte, error) {
	sort.Strings(s.Paths)
	sort.Strings(s.Tags)
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encoding: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot object's plaintext bytes.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, errs.CorruptRepository("decoding snapshot object", err)
	}
	return s, nil
}

// HasTag reports whether s carries tag.
func (s Snapshot) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Lister is the minimal backend-facing capability Resolve needs: every
// live snapshot id and the ability to fetch one's decrypted bytes. The
// repository type satisfies this without snapshot needing to import it.
type Lister interface {
	ListSnapshotIDs(ctx context.Context) ([]ids.ID, error)
	LoadSnapshot(ctx context.Context, id ids.ID) (Snapshot, error)
}

// Resolve turns a user-supplied reference into a concrete snapshot id:
// a full hex id, a unique hex prefix, or "latest" (spec §4.8, §6).
func Resolve(ctx context.Context, l Lister, ref string) (ids.ID, Snapshot, error) {
	if ref == "latest" {
		return resolveLatest(ctx, l)
	}
	if id, err := ids.Parse(ref); err == nil {
		snap, loadErr := l.LoadSnapshot(ctx, id)
		if loadErr != nil {
			return ids.ID{}, Snapshot{}, loadErr
		}
		return id, snap, nil
	}
	return resolvePrefix(ctx, l, ref)
}

func resolveLatest(ctx context.Context, l Lister) (ids.ID, Snapshot, error) {
	all, err := l.ListSnapshotIDs(ctx)
	if err != nil {
		return ids.ID{}, Snapshot{}, err
	}
	if len(all) == 0 {
		return ids.ID{}, Snapshot{}, errs.Input("no snapshots in repository", nil)
	}
	var latestID ids.ID
	var latest Snapshot
	found := false
	for _, id := range all {
		snap, err := l.LoadSnapshot(ctx, id)
		if err != nil {
			continue // tolerate an unreadable snapshot when scanning for latest
		}
		if !found || snap.Time.After(latest.Time) {
			latestID, latest, found = id, snap, true
		}
	}
	if !found {
		return ids.ID{}, Snapshot{}, errs.Input("no readable snapshots in repository", nil)
	}
	return latestID, latest, nil
}

func resolvePrefix(ctx context.Context, l Lister, prefix string) (ids.ID, Snapshot, error) {
	if len(prefix) == 0 {
		return ids.ID{}, Snapshot{}, errs.Input("empty snapshot reference", nil)
	}
	all, err := l.ListSnapshotIDs(ctx)
	if err != nil {
		return ids.ID{}, Snapshot{}, err
	}
	prefix = strings.ToLower(prefix)
	var matches []ids.ID
	for _, id := range all {
		if id.HasPrefix(prefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return ids.ID{}, Snapshot{}, errs.Input(fmt.Sprintf("no snapshot matches %q", prefix), nil)
	case 1:
		snap, err := l.LoadSnapshot(ctx, matches[0])
		if err != nil {
			return ids.ID{}, Snapshot{}, err
		}
		return matches[0], snap, nil
	default:
		return ids.ID{}, Snapshot{}, errs.Input(fmt.Sprintf("ambiguous snapshot prefix %q matches %d snapshots", prefix, len(matches)), nil)
	}
}
