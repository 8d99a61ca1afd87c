package services

import "errors"

// Analysis service errors
var (
	// ErrNoSession is returned by every analysis before a listings file has
	// been loaded.
	ErrNoSession = errors.New("no listings file loaded")

	// ErrUnknownReport is returned for a report kind the analyzer does not compute.
	ErrUnknownReport = errors.New("unknown report")

	// ErrViewNotFound is returned when an export names a view the report lacks.
	ErrViewNotFound = errors.New("view not found")

	// ErrEmptyFile is returned when an upload parses to a table without rows.
	ErrEmptyFile = errors.New("file contains no listings")
)
