package dataprocessing

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateRange is an inclusive range of record dates. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range, both ends included.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// ParseRange parses user supplied range bounds. Empty bounds stay open. An
// end given as a bare date covers that whole day.
func ParseRange(start, end string) (DateRange, error) {
	var r DateRange
	if start != "" {
		t, ok := ParseDate(start)
		if !ok {
			return r, fmt.Errorf("start %q: %w", start, ErrInvalidParameter)
		}
		r.Start = t
	}
	if end != "" {
		t, ok := ParseDate(end)
		if !ok {
			return r, fmt.Errorf("end %q: %w", end, ErrInvalidParameter)
		}
		if !strings.ContainsAny(end, ":T") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		r.End = t
	}
	return r, nil
}

// FilterDateRange keeps rows whose record_date lies inside the range.
// Rows with a null record_date are excluded. An empty result is not an
// error here; callers decide how to report it.
func FilterDateRange(t *Table, r DateRange) (*Table, error) {
	if err := t.Require(ColRecordDate); err != nil {
		return nil, withOperation(err, "date filter")
	}
	return t.Filter(func(row Row) bool {
		d, ok := row.Get(ColRecordDate).TimeValue()
		return ok && r.Contains(d)
	}), nil
}

// DateBounds returns the earliest and latest record_date. ok is false when
// the column is missing or holds no dates.
func DateBounds(t *Table) (DateRange, bool) {
	var bounds DateRange
	found := false
	for i := 0; i < t.Len(); i++ {
		d, ok := t.Value(i, ColRecordDate).TimeValue()
		if !ok {
			continue
		}
		if !found || d.Before(bounds.Start) {
			bounds.Start = d
		}
		if !found || d.After(bounds.End) {
			bounds.End = d
		}
		found = true
	}
	return bounds, found
}

// FilterEquals keeps rows whose column equals v.
func FilterEquals(t *Table, column string, v Value) (*Table, error) {
	if err := t.Require(column); err != nil {
		return nil, err
	}
	return t.Filter(func(row Row) bool { return row.Get(column).Equal(v) }), nil
}

// DistinctValues returns the sorted non-null text values of a column.
func DistinctValues(t *Table, column string) ([]string, error) {
	if err := t.Require(column); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	values := []string{}
	for i := 0; i < t.Len(); i++ {
		v := t.Value(i, column)
		if v.IsNull() {
			continue
		}
		s := v.Text()
		if !seen[s] {
			seen[s] = true
			values = append(values, s)
		}
	}
	sort.Strings(values)
	return values, nil
}

func withOperation(err error, op string) error {
	if se, ok := err.(*SchemaError); ok {
		return &SchemaError{Operation: op, Missing: se.Missing}
	}
	return err
}
