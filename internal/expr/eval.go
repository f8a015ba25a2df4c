package expr

import (
	"fmt"
	"math"
)

// CellError records a recovered per-cell evaluation failure. Row is -1 when
// the failure applies to every row (an identifier with no backing column).
type CellError struct {
	Row    int
	Reason string
}

// Evaluate runs the expression elementwise over the given columns, which
// must all have length rows. It never fails on a bad cell: division by zero
// and unresolvable identifiers produce NaN, and each recovered failure is
// reported in the returned CellError slice.
func Evaluate(n Node, columns map[string][]float64, rows int) ([]float64, []CellError) {
	// Bind identifiers up front so a missing column is one reported
	// failure, not one per row.
	var errs []CellError
	for _, name := range Identifiers(n) {
		col, ok := columns[name]
		if !ok {
			errs = append(errs, CellError{Row: -1, Reason: fmt.Sprintf("identifier %q has no column", name)})
			continue
		}
		if len(col) != rows {
			errs = append(errs, CellError{Row: -1, Reason: fmt.Sprintf("column %q has %d cells, expected %d", name, len(col), rows)})
		}
	}
	if len(errs) > 0 {
		out := make([]float64, rows)
		for i := range out {
			out[i] = math.NaN()
		}
		return out, errs
	}

	out := make([]float64, rows)
	for r := 0; r < rows; r++ {
		v, failure := evalRow(n, columns, r)
		if failure != "" {
			out[r] = math.NaN()
			errs = append(errs, CellError{Row: r, Reason: failure})
			continue
		}
		out[r] = v
	}
	return out, errs
}

// evalRow evaluates one row. A non-empty failure string marks a recovered
// cell error; NaN operands propagate silently without one.
func evalRow(n Node, columns map[string][]float64, row int) (float64, string) {
	switch v := n.(type) {
	case *NumberNode:
		return v.Value, ""
	case *IdentNode:
		return columns[v.Name][row], ""
	case *UnaryNode:
		x, failure := evalRow(v.X, columns, row)
		if failure != "" {
			return 0, failure
		}
		if v.Op == TokenMinus {
			return -x, ""
		}
		return x, ""
	case *BinaryNode:
		left, failure := evalRow(v.Left, columns, row)
		if failure != "" {
			return 0, failure
		}
		right, failure := evalRow(v.Right, columns, row)
		if failure != "" {
			return 0, failure
		}
		switch v.Op {
		case TokenPlus:
			return left + right, ""
		case TokenMinus:
			return left - right, ""
		case TokenStar:
			return left * right, ""
		case TokenSlash:
			if right == 0 {
				return 0, "division by zero"
			}
			return left / right, ""
		case TokenPow:
			v := math.Pow(left, right)
			// math.Pow yields NaN only for invalid operations (negative base
			// with fractional exponent); NaN operands propagate silently.
			if math.IsNaN(v) && !math.IsNaN(left) && !math.IsNaN(right) {
				return 0, fmt.Sprintf("invalid power operation %g ** %g", left, right)
			}
			return v, ""
		}
	}
	return 0, fmt.Sprintf("unsupported node %T", n)
}
