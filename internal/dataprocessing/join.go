package dataprocessing

import "fmt"

// LeftJoin attaches the non-key columns of right to every row of left that
// matches on the key columns. Left rows without a match get nulls; a left
// row matching several right rows is repeated once per match. Right columns
// whose names clash with left columns get a "_right" suffix; if that name is
// taken too the join fails with ErrInvalidParameter.
func LeftJoin(left, right *Table, on ...string) (*Table, error) {
	if err := left.Require(on...); err != nil {
		return nil, withOperation(err, "join")
	}
	if err := right.Require(on...); err != nil {
		return nil, withOperation(err, "join")
	}

	isKey := make(map[string]bool, len(on))
	for _, k := range on {
		isKey[k] = true
	}
	cols := append([]Column(nil), left.columns...)
	taken := make(map[string]bool, len(left.columns)+len(right.columns))
	for _, c := range left.columns {
		taken[c.Name] = true
	}
	var rightIdx []int
	for j, c := range right.columns {
		if isKey[c.Name] {
			continue
		}
		if taken[c.Name] {
			c.Name += "_right"
		}
		if taken[c.Name] {
			return nil, fmt.Errorf("join: column %q already exists: %w", c.Name, ErrInvalidParameter)
		}
		taken[c.Name] = true
		cols = append(cols, c)
		rightIdx = append(rightIdx, j)
	}

	matches := make(map[string][]int)
	for i := 0; i < right.Len(); i++ {
		k := rowKey(right, i, on)
		matches[k] = append(matches[k], i)
	}

	out := newTableFrom(cols)
	for i, row := range left.rows {
		found := matches[rowKey(left, i, on)]
		if len(found) == 0 {
			next := make([]Value, len(cols))
			copy(next, row)
			out.rows = append(out.rows, next)
			continue
		}
		for _, ri := range found {
			next := make([]Value, len(cols))
			copy(next, row)
			for k, j := range rightIdx {
				next[len(row)+k] = right.rows[ri][j]
			}
			out.rows = append(out.rows, next)
		}
	}
	return out, nil
}

// Distinct projects t onto columns and drops repeated rows, keeping the
// first occurrence.
func Distinct(t *Table, columns ...string) (*Table, error) {
	projected, err := t.Select(columns...)
	if err != nil {
		return nil, err
	}
	return DedupeBy(projected, columns...), nil
}

// DedupeBy keeps the first row for every distinct combination of columns.
// All columns are retained.
func DedupeBy(t *Table, columns ...string) *Table {
	seen := make(map[string]bool, t.Len())
	return t.Filter(func(r Row) bool {
		k := rowKey(t, r.Index(), columns)
		if seen[k] {
			return false
		}
		seen[k] = true
		return true
	})
}

// FillNull replaces null cells in the named columns, or in every column
// when none are named.
func FillNull(t *Table, v Value, columns ...string) *Table {
	if len(columns) == 0 {
		columns = t.Columns()
	}
	out := t
	for _, c := range columns {
		if !out.Has(c) {
			continue
		}
		col := c
		out = out.WithColumn(col, func(r Row) Value {
			if cur := r.Get(col); !cur.IsNull() {
				return cur
			}
			return v
		})
	}
	return out
}

// Concat stacks tables vertically over the union of their columns, in
// order of first appearance. Cells of columns a table lacks are null.
func Concat(tables ...*Table) *Table {
	var cols []Column
	seen := make(map[string]bool)
	for _, t := range tables {
		for _, c := range t.columns {
			if !seen[c.Name] {
				seen[c.Name] = true
				cols = append(cols, c)
			}
		}
	}
	out := newTableFrom(cols)
	for _, t := range tables {
		for _, row := range t.rows {
			next := make([]Value, len(cols))
			for j, c := range t.columns {
				next[out.index[c.Name]] = row[j]
			}
			out.rows = append(out.rows, next)
		}
	}
	return out
}
