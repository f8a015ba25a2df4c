package frame

import (
	"fmt"
	"math"
)

// LeftJoin joins another table onto this one using the geography key
// columns. The receiver's rows are the driving set: rows without a match in
// the other table get NaN (numeric) or empty (text) cells for the joined
// columns. Columns already present on the left are kept as-is; the right
// table's duplicates are skipped. Both tables must share the same key
// columns in the same order.
func (t *Table) LeftJoin(other *Table) (*Table, error) {
	if len(t.keys) != len(other.keys) {
		return nil, fmt.Errorf("key mismatch: left has %v, right has %v", t.keys, other.keys)
	}
	for i, k := range t.keys {
		if other.keys[i] != k {
			return nil, fmt.Errorf("key mismatch: left has %v, right has %v", t.keys, other.keys)
		}
	}

	// Index the right table by key tuple; first occurrence wins.
	index := make(map[string]int, other.rows)
	for r := 0; r < other.rows; r++ {
		key := other.keyTuple(r)
		if _, ok := index[key]; !ok {
			index[key] = r
		}
	}

	out := t.Clone()
	for _, name := range other.names {
		if out.HasColumn(name) {
			continue
		}
		src := other.cols[name]
		dst := &Column{Name: name, Kind: src.Kind}
		if src.Kind == KindText {
			dst.Text = make([]string, t.rows)
		} else {
			dst.Nums = make([]float64, t.rows)
		}
		for r := 0; r < t.rows; r++ {
			or, ok := index[t.keyTuple(r)]
			switch {
			case ok && src.Kind == KindText:
				dst.Text[r] = src.Text[or]
			case ok:
				dst.Nums[r] = src.Nums[or]
			case src.Kind == KindText:
				dst.Text[r] = ""
			default:
				dst.Nums[r] = math.NaN()
			}
		}
		out.names = append(out.names, name)
		out.cols[name] = dst
	}
	return out, nil
}
