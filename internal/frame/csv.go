package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// WriteCSV writes the table in column order. NaN cells are written as empty
// strings so the output matches what spreadsheet tools and the downstream
// joiner expect for missing values.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.names); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(t.names))
	for r := 0; r < t.rows; r++ {
		for i, name := range t.names {
			c := t.cols[name]
			if c.Kind == KindText {
				record[i] = c.Text[r]
				continue
			}
			v := c.Nums[r]
			if math.IsNaN(v) {
				record[i] = ""
			} else {
				record[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a table previously written by WriteCSV. All columns start
// as text; callers coerce data columns numeric afterwards.
func ReadCSV(r io.Reader, keys []string) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv: missing header")
	}
	return FromRecords(keys, records[0], records[1:])
}
