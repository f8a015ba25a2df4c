package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeftJoin(t *testing.T) {
	left, err := FromRecords(
		[]string{"state", "place"},
		[]string{"state", "place", "A1_0001"},
		[][]string{
			{"66", "19000", "1"},
			{"66", "24000", "2"},
			{"66", "65000", "3"},
		},
	)
	require.NoError(t, err)
	left.CoerceNumeric()

	right, err := FromRecords(
		[]string{"state", "place"},
		[]string{"state", "place", "B1_0001"},
		[][]string{
			{"66", "24000", "20"},
			{"66", "19000", "10"},
		},
	)
	require.NoError(t, err)
	right.CoerceNumeric()

	joined, err := left.LeftJoin(right)
	require.NoError(t, err)

	assert.Equal(t, 3, joined.Rows(), "left join keeps every driving row")
	assert.Equal(t, []string{"state", "place", "A1_0001", "B1_0001"}, joined.Columns())

	b, ok := joined.Numbers("B1_0001")
	require.True(t, ok)
	assert.Equal(t, 10.0, b[0])
	assert.Equal(t, 20.0, b[1])
	assert.True(t, math.IsNaN(b[2]), "unmatched row gets NaN, not a dropped row")
}

func TestLeftJoin_SkipsDuplicateColumns(t *testing.T) {
	left, err := FromRecords(
		[]string{"state"},
		[]string{"state", "NAME", "A1_0001"},
		[][]string{{"66", "Guam", "1"}},
	)
	require.NoError(t, err)

	right, err := FromRecords(
		[]string{"state"},
		[]string{"state", "NAME", "B1_0001"},
		[][]string{{"66", "GUAM (duplicate)", "2"}},
	)
	require.NoError(t, err)

	joined, err := left.LeftJoin(right)
	require.NoError(t, err)

	assert.Equal(t, []string{"state", "NAME", "A1_0001", "B1_0001"}, joined.Columns())
	name, _ := joined.Column("NAME")
	assert.Equal(t, "Guam", name.Text[0], "first occurrence wins")
}

func TestLeftJoin_KeyMismatch(t *testing.T) {
	left, err := FromRecords([]string{"state"}, []string{"state"}, [][]string{{"66"}})
	require.NoError(t, err)
	right, err := FromRecords([]string{"state", "county"}, []string{"state", "county"}, [][]string{{"66", "010"}})
	require.NoError(t, err)

	_, err = left.LeftJoin(right)
	assert.Error(t, err)
}

func TestLeftJoin_DoesNotMutateInputs(t *testing.T) {
	left, err := FromRecords([]string{"state"}, []string{"state", "A1_0001"}, [][]string{{"66", "1"}})
	require.NoError(t, err)
	right, err := FromRecords([]string{"state"}, []string{"state", "B1_0001"}, [][]string{{"66", "2"}})
	require.NoError(t, err)

	_, err = left.LeftJoin(right)
	require.NoError(t, err)

	assert.Equal(t, []string{"state", "A1_0001"}, left.Columns())
	assert.Equal(t, []string{"state", "B1_0001"}, right.Columns())
}
