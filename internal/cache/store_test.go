package cache

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geostat-labs/svindex/internal/frame"
	"github.com/geostat-labs/svindex/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func placeTable(t *testing.T) *frame.Table {
	t.Helper()
	table, err := frame.FromRecords(
		[]string{"state", "place"},
		[]string{"state", "place", "NAME", "DP4_0125C"},
		[][]string{
			{"66", "19000", "Hagåtña", "25"},
			{"66", "24000", "Dededo", "-888888888"},
		},
	)
	require.NoError(t, err)
	table.CoerceNumeric("NAME")
	return table
}

func TestStore_WriteReadRoundTrip(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Write("dec/dpgu", "66", 2020, "place", placeTable(t)))

	got, err := store.Read("dec/dpgu", "66", 2020, "place", []string{"state", "place"})
	require.NoError(t, err)

	assert.Equal(t, 2, got.Rows())
	assert.Equal(t, []string{"state", "place", "NAME", "DP4_0125C"}, got.Columns())

	nums, ok := got.Numbers("DP4_0125C")
	require.True(t, ok)
	assert.Equal(t, 25.0, nums[0])
	assert.True(t, math.IsNaN(nums[1]), "sentinel survives the round trip as NaN")

	name, _ := got.Column("NAME")
	assert.Equal(t, "Hagåtña", name.Text[0], "NAME stays text after reload")
}

func TestStore_ReadMiss(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Read("dec/dpgu", "66", 2020, "place", []string{"state", "place"})
	require.Error(t, err)

	var miss *MissError
	require.ErrorAs(t, err, &miss)
	assert.Equal(t, "dec/dpgu", miss.Dataset)
	assert.Equal(t, 2020, miss.Year)
}

func TestStore_WriteOverwrites(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Write("dec/dpgu", "66", 2020, "place", placeTable(t)))

	updated, err := frame.FromRecords(
		[]string{"state", "place"},
		[]string{"state", "place", "NAME", "DP4_0125C"},
		[][]string{{"66", "19000", "Hagåtña", "99"}},
	)
	require.NoError(t, err)
	updated.CoerceNumeric("NAME")
	require.NoError(t, store.Write("dec/dpgu", "66", 2020, "place", updated))

	got, err := store.Read("dec/dpgu", "66", 2020, "place", []string{"state", "place"})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Rows())

	infos, err := store.List()
	require.NoError(t, err)
	require.Len(t, infos, 1, "overwrite replaces the index row, not a second entry")
	assert.Equal(t, 1, infos[0].RowCount)
}

func TestStore_ListAndClear(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Write("dec/dpgu", "66", 2020, "place", placeTable(t)))
	require.NoError(t, store.Write("acs/acs5", "66", 2020, "place", placeTable(t)))
	require.NoError(t, store.Write("dec/dpgu", "66", 2010, "place", placeTable(t)))

	infos, err := store.List()
	require.NoError(t, err)
	assert.Len(t, infos, 3)

	removed, err := store.Clear("66", 2020, "")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	infos, err = store.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 2010, infos[0].Year)

	_, err = store.Read("dec/dpgu", "66", 2020, "place", []string{"state", "place"})
	var miss *MissError
	assert.ErrorAs(t, err, &miss, "cleared snapshot payload is gone too")
}

func TestStore_Touch(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Write("dec/dpgu", "66", 2020, "place", placeTable(t)))

	before, err := store.List()
	require.NoError(t, err)
	require.Len(t, before, 1)

	require.NoError(t, store.Touch("dec/dpgu", "66", 2020, "place"))

	after, err := store.List()
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.False(t, after[0].StoredAt.Before(before[0].StoredAt))
}

func TestStore_RunLifecycle(t *testing.T) {
	store := openTestStore(t)

	run, err := store.CreateRun("66", 2020, "place")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.True(t, got.CompletedAt.IsZero())

	require.NoError(t, store.CompleteRun(run.ID, RunStatusCompleted, ""))

	got, err = store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.False(t, got.CompletedAt.IsZero())
	assert.Empty(t, got.Error)
}

func TestStore_FailedRunRecordsError(t *testing.T) {
	store := openTestStore(t)

	run, err := store.CreateRun("66", 2020, "place")
	require.NoError(t, err)
	require.NoError(t, store.CompleteRun(run.ID, RunStatusFailed, "fetch failed"))

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "fetch failed", got.Error)
}

func TestSnapshotFilename(t *testing.T) {
	assert.Equal(t, "2020_66_place_dec-dpgu.csv", snapshotFilename("dec/dpgu", "66", 2020, "place"))
	assert.Equal(t, "2020_08_block_group_acs-acs5.csv", snapshotFilename("acs/acs5", "08", 2020, "block group"))
}
