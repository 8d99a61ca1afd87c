package dataprocessing

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Format tells exporters how a column should be rendered.
type Format uint8

const (
	FormatPlain Format = iota
	FormatCurrency
)

// Column describes one table column.
type Column struct {
	Name   string
	Format Format
}

// Table is an immutable, column-ordered dataset of dynamically typed cells.
// Every operation in this package returns a new Table; row slices are
// shared between tables but never written after construction.
type Table struct {
	columns []Column
	index   map[string]int
	rows    [][]Value
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, name := range columns {
		t.addColumn(Column{Name: name})
	}
	return t
}

func newTableFrom(columns []Column) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

func (t *Table) addColumn(c Column) {
	if _, exists := t.index[c.Name]; exists {
		panic(fmt.Sprintf("dataprocessing: duplicate column %q", c.Name))
	}
	t.index[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
}

// AppendRow adds a row. The number of values must match the column count.
func (t *Table) AppendRow(values ...Value) {
	if len(values) != len(t.columns) {
		panic(fmt.Sprintf("dataprocessing: row has %d values, table has %d columns", len(values), len(t.columns)))
	}
	t.rows = append(t.rows, values)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the metadata of a named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// Has reports whether the table carries the named column.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Require checks that every named column exists. It returns a *SchemaError
// listing all missing columns.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// Value returns the cell at row i of the named column; unknown columns read as null.
func (t *Table) Value(i int, column string) Value {
	j, ok := t.index[column]
	if !ok {
		return Null()
	}
	return t.rows[i][j]
}

// Row returns a read-only view of row i.
func (t *Table) Row(i int) Row { return Row{t: t, i: i} }

// Row is a read-only view of a table row.
type Row struct {
	t *Table
	i int
}

func (r Row) Get(column string) Value { return r.t.Value(r.i, column) }
func (r Row) Index() int              { return r.i }

// Filter returns the rows for which keep returns true, in order.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := newTableFrom(t.columns)
	for i, row := range t.rows {
		if keep(Row{t: t, i: i}) {
			out.rows = append(out.rows, row)
		}
	}
	return out
}

// Select projects the table onto the named columns in the given order.
func (t *Table) Select(columns ...string) (*Table, error) {
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	cols := make([]Column, len(columns))
	idx := make([]int, len(columns))
	for k, name := range columns {
		idx[k] = t.index[name]
		cols[k] = t.columns[idx[k]]
	}
	out := newTableFrom(cols)
	out.rows = make([][]Value, len(t.rows))
	for i, row := range t.rows {
		projected := make([]Value, len(idx))
		for k, j := range idx {
			projected[k] = row[j]
		}
		out.rows[i] = projected
	}
	return out, nil
}

// Drop returns a copy without the named columns. Unknown names are ignored.
func (t *Table) Drop(columns ...string) *Table {
	drop := make(map[string]bool, len(columns))
	for _, c := range columns {
		drop[c] = true
	}
	keep := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if !drop[c.Name] {
			keep = append(keep, c.Name)
		}
	}
	out, _ := t.Select(keep...)
	return out
}

// WithColumn returns a copy with a column computed per row. An existing
// column of the same name is replaced in place.
func (t *Table) WithColumn(name string, compute func(Row) Value) *Table {
	cols := append([]Column(nil), t.columns...)
	pos, exists := t.index[name]
	if !exists {
		pos = len(cols)
		cols = append(cols, Column{Name: name})
	}
	out := newTableFrom(cols)
	out.rows = make([][]Value, len(t.rows))
	for i, row := range t.rows {
		next := make([]Value, len(cols))
		copy(next, row)
		next[pos] = compute(Row{t: t, i: i})
		out.rows[i] = next
	}
	return out
}

// WithFormat returns a copy whose named column carries the given format.
func (t *Table) WithFormat(column string, f Format) *Table {
	out := t.shallowCopy()
	if j, ok := out.index[column]; ok {
		out.columns[j].Format = f
	}
	return out
}

// Rename returns a copy with columns renamed according to mapping.
func (t *Table) Rename(mapping map[string]string) *Table {
	cols := make([]Column, len(t.columns))
	for i, c := range t.columns {
		if to, ok := mapping[c.Name]; ok {
			c.Name = to
		}
		cols[i] = c
	}
	out := newTableFrom(cols)
	out.rows = t.rows
	return out
}

// SortBy returns a copy stably sorted by column. Nulls always sort last.
func (t *Table) SortBy(column string, descending bool) *Table {
	out := t.shallowCopy()
	j, ok := t.index[column]
	if !ok {
		return out
	}
	sort.SliceStable(out.rows, func(a, b int) bool {
		va, vb := out.rows[a][j], out.rows[b][j]
		if va.IsNull() || vb.IsNull() {
			return !va.IsNull() && vb.IsNull()
		}
		c := va.compare(vb)
		if descending {
			return c > 0
		}
		return c < 0
	})
	return out
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	out := newTableFrom(t.columns)
	if n > len(t.rows) {
		n = len(t.rows)
	}
	if n > 0 {
		out.rows = t.rows[:n:n]
	}
	return out
}

// Records returns rows as maps keyed by column name.
func (t *Table) Records() []map[string]Value {
	records := make([]map[string]Value, len(t.rows))
	for i, row := range t.rows {
		rec := make(map[string]Value, len(t.columns))
		for j, c := range t.columns {
			rec[c.Name] = row[j]
		}
		records[i] = rec
	}
	return records
}

func (t *Table) shallowCopy() *Table {
	out := newTableFrom(t.columns)
	out.rows = append([][]Value(nil), t.rows...)
	return out
}

// MarshalJSON encodes the table as {"columns": [...], "rows": [[...], ...]}.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := t.rows
	if rows == nil {
		rows = [][]Value{}
	}
	return json.Marshal(struct {
		Columns []string  `json:"columns"`
		Rows    [][]Value `json:"rows"`
	}{Columns: t.Columns(), Rows: rows})
}
