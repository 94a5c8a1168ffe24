// Package table provides the in-memory tabular value that LeapData datasets
// load and save.
//
// A Table is an ordered set of named columns over rows of cells. The cell
// domain is deliberately small (nil, bool, int64, float64, string) so that
// every registered file format can represent every cell; wider Go types are
// normalized on append. Tables are not safe for concurrent mutation.
package table

import (
	"fmt"
	"math"
	"slices"
)

// Table holds column names and row data. The zero value is not usable;
// construct with New or FromRecords.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// New creates an empty table with the given column names.
// Column names must be non-empty and unique.
func New(columns ...string) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("table requires at least one column")
	}
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		index[name] = i
	}
	return &Table{
		columns: slices.Clone(columns),
		index:   index,
	}, nil
}

// FromRecords builds a table from row maps. Columns fixes the order; keys
// missing from a record become nil cells, unknown keys are an error.
func FromRecords(columns []string, records []map[string]any) (*Table, error) {
	t, err := New(columns...)
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		if err := t.AppendRecord(rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return t, nil
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.columns)
}

// Append adds one row. The cell count must match the column count and each
// cell must normalize into the supported domain.
func (t *Table) Append(cells ...any) error {
	if len(cells) != len(t.columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.columns))
	}
	row := make([]any, len(cells))
	for i, c := range cells {
		v, err := Normalize(c)
		if err != nil {
			return fmt.Errorf("column %q: %w", t.columns[i], err)
		}
		row[i] = v
	}
	t.rows = append(t.rows, row)
	return nil
}

// AppendRecord adds one row from a column→cell map. Missing columns become
// nil; keys that are not columns are an error.
func (t *Table) AppendRecord(rec map[string]any) error {
	for key := range rec {
		if _, ok := t.index[key]; !ok {
			return fmt.Errorf("unknown column %q", key)
		}
	}
	cells := make([]any, len(t.columns))
	for name, i := range t.index {
		if v, ok := rec[name]; ok {
			cells[i] = v
		}
	}
	return t.Append(cells...)
}

// Row returns a copy of row i. Panics if i is out of range, matching slice
// semantics.
func (t *Table) Row(i int) []any {
	return slices.Clone(t.rows[i])
}

// Cell returns the value at row i, column name. The second return is false
// when the column does not exist.
func (t *Table) Cell(i int, column string) (any, bool) {
	j, ok := t.index[column]
	if !ok {
		return nil, false
	}
	return t.rows[i][j], true
}

// Records returns the rows as column→cell maps, one per row.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for i, row := range t.rows {
		rec := make(map[string]any, len(t.columns))
		for j, name := range t.columns {
			rec[name] = row[j]
		}
		out[i] = rec
	}
	return out
}

// Head returns a new table holding at most n leading rows.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	out := &Table{
		columns: slices.Clone(t.columns),
		index:   t.cloneIndex(),
		rows:    make([][]any, n),
	}
	for i := range out.rows {
		out.rows[i] = slices.Clone(t.rows[i])
	}
	return out
}

// Select returns a new table holding only the named columns, in the given
// order. Naming a column the table does not have is an error.
func (t *Table) Select(columns ...string) (*Table, error) {
	out, err := New(columns...)
	if err != nil {
		return nil, err
	}
	src := make([]int, len(columns))
	for i, name := range columns {
		j, ok := t.index[name]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		src[i] = j
	}
	out.rows = make([][]any, len(t.rows))
	for i, row := range t.rows {
		cells := make([]any, len(src))
		for j, k := range src {
			cells[j] = row[k]
		}
		out.rows[i] = cells
	}
	return out, nil
}

// Copy returns a deep copy of the table.
func (t *Table) Copy() *Table {
	out := &Table{
		columns: slices.Clone(t.columns),
		index:   t.cloneIndex(),
		rows:    make([][]any, len(t.rows)),
	}
	for i, row := range t.rows {
		out.rows[i] = slices.Clone(row)
	}
	return out
}

// Equal reports whether both tables have the same columns in the same order
// and cell-for-cell equal rows.
func (t *Table) Equal(other *Table) bool {
	if other == nil {
		return false
	}
	if !slices.Equal(t.columns, other.columns) {
		return false
	}
	if len(t.rows) != len(other.rows) {
		return false
	}
	for i, row := range t.rows {
		for j, cell := range row {
			if cell != other.rows[i][j] {
				return false
			}
		}
	}
	return true
}

func (t *Table) cloneIndex() map[string]int {
	index := make(map[string]int, len(t.index))
	for k, v := range t.index {
		index[k] = v
	}
	return index
}

// Normalize converts a value into the supported cell domain: nil, bool,
// int64, float64, or string. Integer types widen to int64, float32 widens
// to float64, []byte converts to string.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, int64, float64, string:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, fmt.Errorf("uint value %d overflows int64", x)
		}
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("uint64 value %d overflows int64", x)
		}
		return int64(x), nil
	case float32:
		return float64(x), nil
	case []byte:
		return string(x), nil
	default:
		return nil, fmt.Errorf("unsupported cell type %T", v)
	}
}
