package durability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gridhouse/internal/store"
)

func TestSnapshotSaveAndRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	snaps, err := NewSnapshotStore(dir)
	require.NoError(t, err)

	ds := store.NewDataset()
	ds.Strings["greeting"] = "hello"
	ds.Lists["mylist"] = store.NewListFromElems([]string{"a", "b", "c"})
	zs := store.NewOrderedScores()
	_, _ = zs.Add([]store.ScoredMember{{Member: "x", Score: 1}, {Member: "y", Score: 2}}, store.AddOptions{})
	ds.SortedSets["myset"] = zs

	ttl := store.NewTTLIndex()
	ttl.RegisterTTL("greeting", time.Now(), time.Hour)

	path, err := snaps.Save(ds, ttl, 42)
	require.NoError(t, err)
	require.FileExists(t, path)

	restoredDS, restoredTTL, rev, ok, err := snaps.RestoreMostRecent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), rev)
	require.Equal(t, "hello", restoredDS.Strings["greeting"])
	require.Equal(t, []string{"a", "b", "c"}, restoredDS.ListOrNil("mylist").Elems())
	require.Equal(t, 2, restoredDS.SortedSetOrNil("myset").Len())
	_, hasTTL := restoredTTL.TTLRemaining("greeting", time.Now())
	require.True(t, hasTTL)
}

func TestRestoreMostRecentWithNoSnapshotIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	snaps, err := NewSnapshotStore(dir)
	require.NoError(t, err)

	_, _, _, ok, err := snaps.RestoreMostRecent()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSnapshotOrdinalsIncreaseAndPickHighest(t *testing.T) {
	dir := t.TempDir()
	snaps, err := NewSnapshotStore(dir)
	require.NoError(t, err)

	ds := store.NewDataset()
	ttl := store.NewTTLIndex()

	p0, err := snaps.Save(ds, ttl, 1)
	require.NoError(t, err)
	ds.Strings["marker"] = "second"
	p1, err := snaps.Save(ds, ttl, 2)
	require.NoError(t, err)
	require.NotEqual(t, p0, p1)

	restored, _, rev, ok, err := snaps.RestoreMostRecent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(2), rev)
	require.Equal(t, "second", restored.Strings["marker"])
}
