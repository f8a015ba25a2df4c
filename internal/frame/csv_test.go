package frame

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRoundTrip(t *testing.T) {
	table, err := FromRecords(
		[]string{"state", "place"},
		[]string{"state", "place", "NAME", "DP4_0125C"},
		[][]string{
			{"66", "19000", "Hagåtña", "50"},
			{"66", "24000", "Dededo", "-999999999"},
		},
	)
	require.NoError(t, err)
	table.CoerceNumeric("NAME")

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "state,place,NAME,DP4_0125C\n"))
	assert.Contains(t, out, "66,24000,Dededo,\n", "NaN round-trips as an empty cell")

	back, err := ReadCSV(strings.NewReader(out), []string{"state", "place"})
	require.NoError(t, err)
	back.CoerceNumeric("NAME")

	assert.Equal(t, table.Columns(), back.Columns())
	assert.Equal(t, table.Rows(), back.Rows())

	nums, ok := back.Numbers("DP4_0125C")
	require.True(t, ok)
	assert.Equal(t, 50.0, nums[0])
	assert.True(t, math.IsNaN(nums[1]))

	name, _ := back.Column("NAME")
	assert.Equal(t, "Hagåtña", name.Text[0])
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), []string{"state"})
	assert.Error(t, err)
}
