// Package gc implements forget (retention policy evaluation) and garbage
// collection (mark-sweep over the snapshot graph, pack repacking) per
// spec §4.9. Grounded on the teacher's reconciler package idiom — a
// periodic pass comparing desired state to actual state and acting on the
// delta — generalized here from cluster reconciliation to snapshot-graph
// reachability: forget computes the desired snapshot set, gc reconciles
// the backend's pack and index objects to match what that set reaches.
package gc

import (
	"fmt"
	"sort"
	"time"

	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/snapshot"
)

// Policy configures which snapshots forget keeps, mirroring restic's
// --keep-* flag family (spec §4.9: "keep N latest, keep hourly/daily/
// weekly/monthly/yearly buckets, keep tagged").
type Policy struct {
	KeepLast    int
	KeepHourly  int
	KeepDaily   int
	KeepWeekly  int
	KeepMonthly int
	KeepYearly  int
	KeepTags    []string
}

// Empty reports whether the policy has no keep rules at all, used by the
// CLI to refuse a bare "forget" with no ids and no --keep-* flags rather
// than silently deleting every snapshot.
func (p Policy) Empty() bool {
	return p.KeepLast == 0 && p.KeepHourly == 0 && p.KeepDaily == 0 &&
		p.KeepWeekly == 0 && p.KeepMonthly == 0 && p.KeepYearly == 0 && len(p.KeepTags) == 0
}

// entry pairs a snapshot id with the fields retention evaluation needs.
type entry struct {
	id   ids.ID
	time time.Time
	tags []string
}

// SelectForgettable evaluates policy against snapshots and returns the ids
// to delete: everything not kept by any --keep-* rule. now is passed in
// rather than read from the clock so evaluation is deterministic.
func SelectForgettable(snaps []snapshot.Snapshot, snapIDs []ids.ID, policy Policy, now time.Time) []ids.ID {
	entries := make([]entry, len(snaps))
	for i, s := range snaps {
		entries[i] = entry{id: snapIDs[i], time: s.Time, tags: s.Tags}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].time.After(entries[j].time) })

	keep := ids.NewSet()

	for _, e := range entries {
		for _, t := range e.tags {
			if hasTag(policy.KeepTags, t) {
				keep.Insert(e.id)
				break
			}
		}
	}

	if policy.KeepLast > 0 {
		for i := 0; i < policy.KeepLast && i < len(entries); i++ {
			keep.Insert(entries[i].id)
		}
	}

	keepBucketed(entries, keep, policy.KeepHourly, func(t time.Time) string {
		return t.Format("2006-01-02T15")
	})
	keepBucketed(entries, keep, policy.KeepDaily, func(t time.Time) string {
		return t.Format("2006-01-02")
	})
	keepBucketed(entries, keep, policy.KeepWeekly, func(t time.Time) string {
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	})
	keepBucketed(entries, keep, policy.KeepMonthly, func(t time.Time) string {
		return t.Format("2006-01")
	})
	keepBucketed(entries, keep, policy.KeepYearly, func(t time.Time) string {
		return t.Format("2006")
	})

	var forget []ids.ID
	for _, e := range entries {
		if !keep.Has(e.id) {
			forget = append(forget, e.id)
		}
	}
	return forget
}

// keepBucketed keeps the newest snapshot in each of the first n distinct
// buckets produced by bucketOf, scanning entries newest-first.
func keepBucketed(entries []entry, keep ids.Set, n int, bucketOf func(time.Time) string) {
	if n <= 0 {
		return
	}
	seen := make(map[string]bool, n)
	for _, e := range entries {
		if len(seen) >= n {
			return
		}
		b := bucketOf(e.time)
		if seen[b] {
			continue
		}
		seen[b] = true
		keep.Insert(e.id)
	}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
