package gc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/strata/pkg/ids"
	"github.com/cuemby/strata/pkg/snapshot"
)

func snap(t time.Time, tags ...string) snapshot.Snapshot {
	return snapshot.Snapshot{Time: t, Tags: tags}
}

func idAt(n byte) ids.ID {
	var id ids.ID
	id[0] = n
	return id
}

func TestSelectForgettable_KeepLast(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	snapIDs := []ids.ID{idAt(1), idAt(2), idAt(3)}
	snaps := []snapshot.Snapshot{
		snap(now.Add(-3 * time.Hour)),
		snap(now.Add(-2 * time.Hour)),
		snap(now.Add(-1 * time.Hour)),
	}

	forget := SelectForgettable(snaps, snapIDs, Policy{KeepLast: 1}, now)
	require.ElementsMatch(t, []ids.ID{idAt(1), idAt(2)}, forget)
}

func TestSelectForgettable_KeepTagged(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	snapIDs := []ids.ID{idAt(1), idAt(2)}
	snaps := []snapshot.Snapshot{
		snap(now.Add(-3*time.Hour), "nightly"),
		snap(now.Add(-2 * time.Hour)),
	}

	forget := SelectForgettable(snaps, snapIDs, Policy{KeepTags: []string{"nightly"}}, now)
	require.Equal(t, []ids.ID{idAt(2)}, forget)
}

func TestSelectForgettable_KeepDailyBuckets(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	snapIDs := []ids.ID{idAt(1), idAt(2), idAt(3)}
	snaps := []snapshot.Snapshot{
		snap(now.Add(-48 * time.Hour)), // two calendar days ago
		snap(now.Add(-25 * time.Hour)), // one calendar day ago
		snap(now.Add(-1 * time.Hour)),  // today
	}

	forget := SelectForgettable(snaps, snapIDs, Policy{KeepDaily: 2}, now)
	// Only the two most recent distinct days are kept; the snapshot from
	// two days ago falls outside the bucket count.
	require.ElementsMatch(t, []ids.ID{idAt(1)}, forget)
}

func TestSelectForgettable_NoPolicyForgetsEverything(t *testing.T) {
	now := time.Now().UTC()
	snapIDs := []ids.ID{idAt(1)}
	snaps := []snapshot.Snapshot{snap(now)}

	forget := SelectForgettable(snaps, snapIDs, Policy{}, now)
	require.Equal(t, snapIDs, forget)
}

func TestPolicy_Empty(t *testing.T) {
	require.True(t, Policy{}.Empty())
	require.False(t, Policy{KeepLast: 1}.Empty())
	require.False(t, Policy{KeepTags: []string{"x"}}.Empty())
}
