// Package frame provides a column-oriented table keyed by geography columns.
// It supports sentinel-aware numeric coercion, left joins on the geography
// key, and CSV round-trips for cache snapshots and final output.
package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sentinel values used by the API to mark suppressed or unavailable cells.
// They are mapped to NaN before any arithmetic touches a raw column.
const (
	SentinelSuppressed  = -888888888
	SentinelUnavailable = -999999999
)

// Kind identifies the storage type of a column.
type Kind int

// Kind constants for column storage types.
const (
	KindText   Kind = iota // string cells (geography keys, NAME)
	KindNumber             // float64 cells, NaN for missing
)

// Column holds one named column of a table. Exactly one of Text or Nums is
// populated, depending on Kind.
type Column struct {
	Name string
	Kind Kind
	Text []string
	Nums []float64
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	if c.Kind == KindText {
		return len(c.Text)
	}
	return len(c.Nums)
}

// Table is an immutable-by-convention columnar table. Rows are identified by
// the ordered geography key columns; all mutating operations return errors
// rather than silently reshaping the table.
type Table struct {
	keys  []string // geography key column names, in order
	names []string // all column names, in declaration order
	cols  map[string]*Column
	rows  int
}

// New creates an empty table with the given geography key columns.
func New(keys []string) *Table {
	return &Table{
		keys: append([]string(nil), keys...),
		cols: make(map[string]*Column),
	}
}

// FromRecords builds a table from a header row and string records, as
// returned by the API or read from a CSV snapshot. Every column starts as
// text; use CoerceNumeric to convert data columns. All key columns must be
// present in the header.
func FromRecords(keys []string, header []string, records [][]string) (*Table, error) {
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if name == "" {
			return nil, fmt.Errorf("empty column name in header")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q in header", name)
		}
		seen[name] = true
	}
	for _, key := range keys {
		if !seen[key] {
			return nil, fmt.Errorf("key column %q missing from header", key)
		}
	}

	t := New(keys)
	t.rows = len(records)
	for i, name := range header {
		text := make([]string, len(records))
		for r, rec := range records {
			if len(rec) != len(header) {
				return nil, fmt.Errorf("row %d has %d fields, header has %d", r, len(rec), len(header))
			}
			text[r] = rec[i]
		}
		t.names = append(t.names, name)
		t.cols[name] = &Column{Name: name, Kind: KindText, Text: text}
	}
	return t, nil
}

// Keys returns the geography key column names in order.
func (t *Table) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Columns returns all column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.names...)
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	return t.rows
}

// Column returns the named column, or false if absent.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.cols[name]
	return c, ok
}

// HasColumn reports whether the table contains the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Numbers returns the numeric cells of the named column.
func (t *Table) Numbers(name string) ([]float64, bool) {
	c, ok := t.cols[name]
	if !ok || c.Kind != KindNumber {
		return nil, false
	}
	return c.Nums, true
}

// AddNumberColumn appends a numeric column. The column must not already
// exist and must match the table's row count.
func (t *Table) AddNumberColumn(name string, vals []float64) error {
	if _, ok := t.cols[name]; ok {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(vals) != t.rows {
		return fmt.Errorf("column %q has %d cells, table has %d rows", name, len(vals), t.rows)
	}
	t.names = append(t.names, name)
	t.cols[name] = &Column{Name: name, Kind: KindNumber, Nums: vals}
	return nil
}

// Clone returns a deep copy of the table. Derived tables are built on a
// clone so the input is never mutated in place.
func (t *Table) Clone() *Table {
	out := &Table{
		keys:  append([]string(nil), t.keys...),
		names: append([]string(nil), t.names...),
		cols:  make(map[string]*Column, len(t.cols)),
		rows:  t.rows,
	}
	for name, c := range t.cols {
		cp := &Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == KindText {
			cp.Text = append([]string(nil), c.Text...)
		} else {
			cp.Nums = append([]float64(nil), c.Nums...)
		}
		out.cols[name] = cp
	}
	return out
}

// CoerceNumeric converts every column except the keys and the listed
// preserved columns to numeric. Cells that do not parse as numbers become
// NaN, and sentinel values are mapped to NaN.
func (t *Table) CoerceNumeric(preserve ...string) {
	keep := make(map[string]bool, len(t.keys)+len(preserve))
	for _, k := range t.keys {
		keep[k] = true
	}
	for _, p := range preserve {
		keep[p] = true
	}
	for _, name := range t.names {
		if keep[name] {
			continue
		}
		c := t.cols[name]
		if c.Kind == KindNumber {
			// Already numeric; still apply the sentinel mapping.
			for i, v := range c.Nums {
				if isSentinel(v) {
					c.Nums[i] = math.NaN()
				}
			}
			continue
		}
		nums := make([]float64, len(c.Text))
		for i, s := range c.Text {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil || isSentinel(v) {
				nums[i] = math.NaN()
				continue
			}
			nums[i] = v
		}
		c.Kind = KindNumber
		c.Nums = nums
		c.Text = nil
	}
}

func isSentinel(v float64) bool {
	return v == SentinelSuppressed || v == SentinelUnavailable
}

// keyTuple returns the join key for a row, built from the key columns.
func (t *Table) keyTuple(row int) string {
	parts := make([]string, len(t.keys))
	for i, k := range t.keys {
		c := t.cols[k]
		if c.Kind == KindText {
			parts[i] = c.Text[row]
		} else {
			parts[i] = strconv.FormatFloat(c.Nums[row], 'g', -1, 64)
		}
	}
	return strings.Join(parts, "\x1f")
}

// Reorder rearranges the columns into the given order. The order must be a
// permutation of the existing column names.
func (t *Table) Reorder(order []string) error {
	if len(order) != len(t.names) {
		return fmt.Errorf("reorder lists %d columns, table has %d", len(order), len(t.names))
	}
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if _, ok := t.cols[name]; !ok {
			return fmt.Errorf("unknown column %q in reorder", name)
		}
		if seen[name] {
			return fmt.Errorf("column %q listed twice in reorder", name)
		}
		seen[name] = true
	}
	t.names = append([]string(nil), order...)
	return nil
}
