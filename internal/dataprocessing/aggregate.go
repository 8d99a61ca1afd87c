package dataprocessing

import "fmt"

// Reducer names an aggregation function.
type Reducer string

const (
	Sum           Reducer = "sum"
	Mean          Reducer = "mean"
	Count         Reducer = "count"
	CountDistinct Reducer = "count_distinct"
	First         Reducer = "first"
)

// Measure is one aggregated output column. Count with an empty Field
// counts rows; every other reducer skips null values of Field.
type Measure struct {
	Field   string
	Reducer Reducer
	As      string
}

func (m Measure) name() string {
	if m.As != "" {
		return m.As
	}
	if m.Field == "" {
		return string(m.Reducer)
	}
	return m.Field
}

type accumulator struct {
	sum      float64
	n        int
	rows     int
	first    Value
	hasFirst bool
	distinct map[string]struct{}
}

func (a *accumulator) add(m Measure, v Value) {
	a.rows++
	if m.Field == "" || v.IsNull() {
		return
	}
	switch m.Reducer {
	case Sum, Mean:
		if f, ok := v.Float(); ok {
			a.sum += f
			a.n++
		}
	case Count:
		a.n++
	case CountDistinct:
		if a.distinct == nil {
			a.distinct = make(map[string]struct{})
		}
		a.distinct[v.key()] = struct{}{}
	case First:
		if !a.hasFirst {
			a.first, a.hasFirst = v, true
		}
	}
}

func (a *accumulator) result(m Measure) Value {
	switch m.Reducer {
	case Sum:
		return Number(a.sum)
	case Mean:
		if a.n == 0 {
			return Null()
		}
		return Number(a.sum / float64(a.n))
	case Count:
		if m.Field == "" {
			return Number(float64(a.rows))
		}
		return Number(float64(a.n))
	case CountDistinct:
		return Number(float64(len(a.distinct)))
	case First:
		return a.first
	}
	return Null()
}

type group struct {
	keys []Value
	accs []accumulator
}

// Aggregate groups t by keys and applies each measure per group. Groups
// appear in order of first appearance. Null key values form their own
// group. Sum of a group with no numeric values is 0 and Mean is null.
func Aggregate(t *Table, keys []string, measures ...Measure) (*Table, error) {
	required := append([]string(nil), keys...)
	for _, m := range measures {
		if m.Field != "" {
			required = append(required, m.Field)
		}
		switch m.Reducer {
		case Sum, Mean, Count, CountDistinct, First:
		default:
			return nil, fmt.Errorf("aggregate: unknown reducer %q", m.Reducer)
		}
	}
	if err := t.Require(required...); err != nil {
		return nil, withOperation(err, "aggregate")
	}

	var order []*group
	groups := make(map[string]*group)
	for i := 0; i < t.Len(); i++ {
		k := ""
		keyVals := make([]Value, len(keys))
		for j, name := range keys {
			keyVals[j] = t.Value(i, name)
			k += keyVals[j].key() + "\x1f"
		}
		g, ok := groups[k]
		if !ok {
			g = &group{keys: keyVals, accs: make([]accumulator, len(measures))}
			groups[k] = g
			order = append(order, g)
		}
		for j, m := range measures {
			var v Value
			if m.Field != "" {
				v = t.Value(i, m.Field)
			}
			g.accs[j].add(m, v)
		}
	}

	cols := make([]Column, 0, len(keys)+len(measures))
	for _, k := range keys {
		c, _ := t.Column(k)
		cols = append(cols, c)
	}
	for _, m := range measures {
		c := Column{Name: m.name()}
		if src, ok := t.Column(m.Field); ok && m.Reducer != Count && m.Reducer != CountDistinct {
			c.Format = src.Format
		}
		cols = append(cols, c)
	}
	out := newTableFrom(cols)
	for _, g := range order {
		row := make([]Value, 0, len(cols))
		row = append(row, g.keys...)
		for j, m := range measures {
			row = append(row, g.accs[j].result(m))
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// DropNullKeys removes rows whose key column is null.
func DropNullKeys(t *Table, column string) *Table {
	return t.Filter(func(r Row) bool { return !r.Get(column).IsNull() })
}
