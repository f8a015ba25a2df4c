package expr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, input string) Node {
	t.Helper()
	n, err := Parse(input)
	require.NoError(t, err)
	return n
}

func TestEvaluate_Arithmetic(t *testing.T) {
	columns := map[string][]float64{
		"E_POV150":       {50, 100},
		"S1701_C01_001E": {200, 200},
	}

	out, errs := Evaluate(mustParse(t, "(E_POV150 / S1701_C01_001E) * 100"), columns, 2)
	assert.Empty(t, errs)
	assert.Equal(t, []float64{25, 50}, out)
}

func TestEvaluate_DivisionByZeroIsNaN(t *testing.T) {
	columns := map[string][]float64{
		"a": {10, 10},
		"b": {0, 2},
	}

	out, errs := Evaluate(mustParse(t, "a / b"), columns, 2)
	assert.True(t, math.IsNaN(out[0]), "division by zero should yield NaN")
	assert.Equal(t, 5.0, out[1], "other rows keep evaluating")

	require.Len(t, errs, 1)
	assert.Equal(t, 0, errs[0].Row)
	assert.Equal(t, "division by zero", errs[0].Reason)
}

func TestEvaluate_NaNPropagates(t *testing.T) {
	columns := map[string][]float64{
		"a": {math.NaN(), 1},
		"b": {2, 2},
	}

	out, errs := Evaluate(mustParse(t, "a + b"), columns, 2)
	assert.Empty(t, errs, "NaN operands are not errors")
	assert.True(t, math.IsNaN(out[0]))
	assert.Equal(t, 3.0, out[1])
}

func TestEvaluate_MissingIdentifier(t *testing.T) {
	columns := map[string][]float64{"a": {1, 2}}

	out, errs := Evaluate(mustParse(t, "a + nowhere"), columns, 2)
	for _, v := range out {
		assert.True(t, math.IsNaN(v), "whole column should be NaN")
	}
	require.Len(t, errs, 1)
	assert.Equal(t, -1, errs[0].Row)
	assert.Contains(t, errs[0].Reason, "nowhere")
}

func TestEvaluate_UnaryAndPower(t *testing.T) {
	columns := map[string][]float64{"x": {3}}

	out, errs := Evaluate(mustParse(t, "-x ** 2"), columns, 1)
	assert.Empty(t, errs)
	assert.Equal(t, []float64{-9}, out)

	out, errs = Evaluate(mustParse(t, "(0 - x) ** 2"), columns, 1)
	assert.Empty(t, errs)
	assert.Equal(t, []float64{9}, out)
}

func TestEvaluate_InvalidPowerIsSoftFailure(t *testing.T) {
	columns := map[string][]float64{
		"x": {-4, 4, math.NaN()},
	}

	out, errs := Evaluate(mustParse(t, "x ** 0.5"), columns, 3)
	assert.True(t, math.IsNaN(out[0]))
	assert.Equal(t, 2.0, out[1])
	assert.True(t, math.IsNaN(out[2]))

	require.Len(t, errs, 1, "NaN base propagates silently; only the invalid operation is reported")
	assert.Equal(t, 0, errs[0].Row)
	assert.Contains(t, errs[0].Reason, "invalid power")
}

func TestEvaluate_NumericLiteralsOnly(t *testing.T) {
	out, errs := Evaluate(mustParse(t, "1 + 2 * 3"), nil, 3)
	assert.Empty(t, errs)
	assert.Equal(t, []float64{7, 7, 7}, out)
}
