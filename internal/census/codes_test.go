package census

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geostat-labs/svindex/internal/config"
)

func TestIsRawCode(t *testing.T) {
	valid := []string{
		"DP4_0125C",
		"DP3_0001",
		"S1_0001E",
		"ABCD123_4567",
		"B1_0001",
	}
	for _, code := range valid {
		assert.True(t, IsRawCode(code), "%q should match the raw-code grammar", code)
	}

	invalid := []string{
		"EP_POV150",       // letters after the underscore
		"E_POV150",        // letters after the underscore
		"S1701_C01_001E",  // two underscores
		"dp4_0125c",       // lowercase
		"ABCDE1_0001",     // five letters
		"DP1234_0001",     // four digits before the underscore
		"DP4_012",         // three digits after the underscore
		"DP4_01234",       // five digits after the underscore
		"rank",            // plain word
		"100",             // number
	}
	for _, code := range invalid {
		assert.False(t, IsRawCode(code), "%q should not match the raw-code grammar", code)
	}
}

func TestExtractCodes(t *testing.T) {
	codes := ExtractCodes("(DP4_0125C / DP4_0001C) * 100 + DP4_0125C")
	assert.Equal(t, []string{"DP4_0125C", "DP4_0001C"}, codes, "distinct, first-appearance order")

	assert.Empty(t, ExtractCodes("EP_POV150 + SPL_THEME1"), "alias references are not fetch targets")

	codes = ExtractCodes("rank(DP4_0125C)")
	assert.Equal(t, []string{"DP4_0125C"}, codes, "rank targets that are raw codes get fetched")
}

func TestGroupCodesByDataset(t *testing.T) {
	vars := []config.Variable{
		{Alias: "E_TOTPOP", Dataset: "dec/dpgu", Expression: "DP1_0001C"},
		{Alias: "EP_POV", Dataset: "dec/dpgu", Expression: "(DP3_0128C / DP1_0001C) * 100"},
		{Alias: "E_AGE65", Dataset: "acs/acs5", Expression: "B1_0001E + B1_0002E"},
		{Alias: "RPL_POV", Dataset: "dec/dpgu", Expression: "rank(EP_POV)"},
	}

	buckets, err := GroupCodesByDataset(vars)
	require.NoError(t, err)

	assert.Equal(t, []string{"dec/dpgu", "acs/acs5"}, buckets.Order, "first-appearance dataset order")
	assert.Equal(t, []string{"DP1_0001C", "DP3_0128C"}, buckets.Codes["dec/dpgu"])
	assert.Equal(t, []string{"B1_0001E", "B1_0002E"}, buckets.Codes["acs/acs5"])
	assert.Equal(t, 4, buckets.TotalCodes())
}

func TestGroupCodesByDataset_DoublyClaimedCode(t *testing.T) {
	vars := []config.Variable{
		{Alias: "A", Dataset: "dec/dpgu", Expression: "DP1_0001C"},
		{Alias: "B", Dataset: "acs/acs5", Expression: "DP1_0001C + 1"},
		{Alias: "C", Dataset: "acs/acs5", Expression: "DP1_0002C"},
		{Alias: "D", Dataset: "dec/dpgu", Expression: "DP1_0002C * 2"},
	}

	_, err := GroupCodesByDataset(vars)
	require.Error(t, err)

	var schemaErr *config.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Len(t, schemaErr.Problems, 2, "every doubly-claimed code is listed")
	assert.Contains(t, schemaErr.Problems[0], "DP1_0001C")
	assert.Contains(t, schemaErr.Problems[1], "DP1_0002C")
}
