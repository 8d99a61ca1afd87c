package dataprocessing

import "fmt"

// TopN returns the n rows with the largest metric, in descending order.
// Ties keep their input order and null metrics sort last. When the table
// has fewer than n rows all rows are returned.
func TopN(t *Table, metric string, n int) (*Table, error) {
	if n < 1 {
		return nil, fmt.Errorf("top %d by %s: %w", n, metric, ErrInvalidTopN)
	}
	if err := t.Require(metric); err != nil {
		return nil, withOperation(err, "ranking")
	}
	return t.SortBy(metric, true).Head(n), nil
}

// ClampTopN bounds a requested N to [1, max]. A non-positive request
// yields def, itself clamped.
func ClampTopN(n, def, max int) int {
	if n <= 0 {
		n = def
	}
	if max > 0 && n > max {
		n = max
	}
	if n < 1 {
		n = 1
	}
	return n
}
