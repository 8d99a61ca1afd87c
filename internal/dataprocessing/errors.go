package dataprocessing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyResult is returned when a filter or aggregation leaves no rows.
	ErrEmptyResult = errors.New("no data for the selected criteria")

	// ErrFileTooLarge is returned before parsing when an input exceeds the configured limit.
	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")

	// ErrMalformedFile is returned when a workbook or CSV cannot be decoded.
	ErrMalformedFile = errors.New("file could not be parsed")

	// ErrInvalidTopN is returned when a ranking is requested with N < 1.
	ErrInvalidTopN = errors.New("top N must be at least 1")

	// ErrInvalidParameter is returned when a report is asked for without the
	// seller or OEM it is about, or for a metric that cannot be compared.
	ErrInvalidParameter = errors.New("invalid or missing parameter")
)

// SchemaError reports canonical columns an operation needs but the table lacks.
type SchemaError struct {
	Operation string
	Missing   []string
}

func (e *SchemaError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s: missing required columns: %s", e.Operation, strings.Join(e.Missing, ", "))
}

// IsSchemaError reports whether err wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// emptyResult wraps ErrEmptyResult with what came up empty.
func emptyResult(what string) error {
	return fmt.Errorf("%s: %w", what, ErrEmptyResult)
}
