package census

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeokeys(t *testing.T) {
	tests := []struct {
		geography string
		want      []string
	}{
		{"state", []string{"state"}},
		{"county", []string{"state", "county"}},
		{"tract", []string{"state", "county", "tract"}},
		{"place", []string{"state", "place"}},
		{"block group", []string{"state", "county", "tract", "block group"}},
	}

	for _, tt := range tests {
		t.Run(tt.geography, func(t *testing.T) {
			keys, err := Geokeys(tt.geography)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestGeokeys_Unknown(t *testing.T) {
	_, err := Geokeys("galaxy")
	require.Error(t, err)

	var unknownErr *UnknownGeographyError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "galaxy", unknownErr.Name)
	assert.Contains(t, unknownErr.Error(), "place", "error lists the supported names")
}

func TestNames_Sorted(t *testing.T) {
	names := Names()
	require.NotEmpty(t, names)
	for i := 1; i < len(names); i++ {
		assert.LessOrEqual(t, names[i-1], names[i], "names should be sorted")
	}
}
