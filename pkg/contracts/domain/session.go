// Package domain holds the data shapes shared between the analysis service,
// the HTTP API and the CLI.
package domain

import "time"

// FileKind tells how an uploaded listings file entered the session.
type FileKind string

const (
	// FileKindPrimary replaces the session table.
	FileKindPrimary FileKind = "primary"
	// FileKindCompetitors is stacked under the primary table.
	FileKindCompetitors FileKind = "competitors"
)

// FileSummary describes one listings file loaded into the session and what
// normalization did to it.
type FileSummary struct {
	Name         string            `json:"name"`
	Kind         FileKind          `json:"kind"`
	Bytes        int64             `json:"bytes"`
	Rows         int               `json:"rows"`
	Renamed      map[string]string `json:"renamed_columns,omitempty"`
	NullDates    map[string]int    `json:"null_dates,omitempty"`
	NullNumbers  map[string]int    `json:"null_numbers,omitempty"`
	BadTags      int               `json:"bad_tags,omitempty"`
	AddedColumns []string          `json:"added_columns,omitempty"`
	LoadedAt     time.Time         `json:"loaded_at"`
}

// Fallbacks is the number of cells normalization could not coerce.
func (f FileSummary) Fallbacks() int {
	n := f.BadTags
	for _, c := range f.NullDates {
		n += c
	}
	for _, c := range f.NullNumbers {
		n += c
	}
	return n
}

// SessionInfo describes the table currently held by the analysis session.
// Version increases on every load or append so clients can tell a stale
// view from a fresh one.
type SessionInfo struct {
	ID           string        `json:"id"`
	Version      int           `json:"version"`
	Rows         int           `json:"rows"`
	Columns      []string      `json:"columns"`
	Start        *time.Time    `json:"start,omitempty"`
	End          *time.Time    `json:"end,omitempty"`
	ListingIDNum bool          `json:"listing_id_numeric"`
	Files        []FileSummary `json:"files"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// HasCompetitors reports whether a competitor file has been appended.
func (s SessionInfo) HasCompetitors() bool {
	for _, f := range s.Files {
		if f.Kind == FileKindCompetitors {
			return true
		}
	}
	return false
}

// PickLists are the sellers and OEMs present in a date range.
type PickLists struct {
	Sellers []string `json:"sellers"`
	OEMs    []string `json:"oems"`
}
