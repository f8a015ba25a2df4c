package expr

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// rankRe matches the dedicated rank operation: rank(TARGET). The keyword is
// case-insensitive; the target must be a bare identifier.
var rankRe = regexp.MustCompile(`^(?i:rank)\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)$`)

// ParseRank reports whether the expression is a rank operation, and if so
// returns the target identifier. Rank is not part of the arithmetic grammar;
// it is detected before arithmetic parsing.
func ParseRank(expression string) (string, bool) {
	m := rankRe.FindStringSubmatch(strings.TrimSpace(expression))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// PercentileRank computes the ascending fractional rank of each value over
// the non-NaN population. Ties receive the average of their ranks, results
// are divided by the non-NaN count and rounded to 4 decimals. NaN inputs
// stay NaN and are excluded from the denominator.
func PercentileRank(values []float64) []float64 {
	idx := make([]int, 0, len(values))
	for i, v := range values {
		if !math.IsNaN(v) {
			idx = append(idx, i)
		}
	}

	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(idx) == 0 {
		return out
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] < values[idx[b]]
	})

	n := float64(len(idx))
	for start := 0; start < len(idx); {
		end := start + 1
		for end < len(idx) && values[idx[end]] == values[idx[start]] {
			end++
		}
		// Average rank for the tie group; ranks are 1-based.
		avg := float64(start+1+end) / 2
		pct := avg / n
		rounded := math.Round(pct*10000) / 10000
		for i := start; i < end; i++ {
			out[idx[i]] = rounded
		}
		start = end
	}
	return out
}
