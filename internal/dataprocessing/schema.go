package dataprocessing

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Canonical column names used by every analysis.
const (
	ColAvailableQuantity = "available_quantity"
	ColHealth            = "health"
	ColSeller            = "seller"
	ColPrice             = "price"
	ColStartDate         = "start_date"
	ColLastUpdatedDate   = "last_updated_date"
	ColVisits            = "visits"
	ColCategory          = "category"
	ColTitle             = "title"
	ColRecordDate        = "record_date"
	ColListingID         = "listing_id"
	ColOEM               = "oem"
	ColPermalink         = "permalink"
	ColTags              = "tags"
	ColShipping          = "shipping"
)

// sourceColumns maps the headers found in marketplace exports to canonical
// names. Both seller header variants are accepted.
var sourceColumns = map[string]string{
	"Available Quantity": ColAvailableQuantity,
	"health":             ColHealth,
	"Seller2":            ColSeller,
	"Seller":             ColSeller,
	"Price":              ColPrice,
	"date_created":       ColStartDate,
	"last_updated":       ColLastUpdatedDate,
	"visits":             ColVisits,
	"description":        ColCategory,
	"Title":              ColTitle,
	"Fecha":              ColRecordDate,
	"ID":                 ColListingID,
	"OEM":                ColOEM,
	"permalink":          ColPermalink,
	"tags":               ColTags,
	"shipping":           ColShipping,
}

var (
	numericColumns = []string{ColAvailableQuantity, ColHealth, ColPrice, ColVisits}
	dateColumns    = []string{ColStartDate, ColLastUpdatedDate, ColRecordDate}
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
}

// NormalizeStats records what Normalize did to a table.
type NormalizeStats struct {
	Renamed      map[string]string
	NullDates    map[string]int
	NullNumbers  map[string]int
	BadTags      int
	ListingIDNum bool
}

// CanonicalColumn returns the canonical name for a source header, or the
// header unchanged when it is not in the dictionary.
func CanonicalColumn(header string) string {
	if c, ok := sourceColumns[strings.TrimSpace(header)]; ok {
		return c
	}
	return header
}

// Normalize renames source headers to canonical names and coerces column
// types: dates to time, metrics to numbers, oem to text, tags to lists.
// Unparseable dates and metrics become null. listing_id becomes numeric only
// when every non-null value parses. price is marked as currency. Unknown
// columns pass through unchanged.
func Normalize(raw *Table) (*Table, NormalizeStats) {
	stats := NormalizeStats{
		Renamed:     make(map[string]string),
		NullDates:   make(map[string]int),
		NullNumbers: make(map[string]int),
	}

	mapping := make(map[string]string)
	taken := make(map[string]bool)
	for _, c := range raw.columns {
		canonical := CanonicalColumn(c.Name)
		if canonical != c.Name && !taken[canonical] && !raw.Has(canonical) {
			mapping[c.Name] = canonical
			stats.Renamed[c.Name] = canonical
			taken[canonical] = true
		}
	}
	t := raw.Rename(mapping)

	for _, col := range dateColumns {
		if !t.Has(col) {
			continue
		}
		nulls := 0
		t = t.WithColumn(col, func(r Row) Value {
			v := coerceTime(r.Get(col))
			if v.IsNull() && !r.Get(col).IsNull() {
				nulls++
			}
			return v
		})
		stats.NullDates[col] = nulls
	}

	for _, col := range numericColumns {
		if !t.Has(col) {
			continue
		}
		nulls := 0
		t = t.WithColumn(col, func(r Row) Value {
			v := coerceNumber(r.Get(col))
			if v.IsNull() && !r.Get(col).IsNull() {
				nulls++
			}
			return v
		})
		stats.NullNumbers[col] = nulls
	}

	if t.Has(ColPrice) {
		t = t.WithFormat(ColPrice, FormatCurrency)
	}

	if t.Has(ColOEM) {
		t = t.WithColumn(ColOEM, func(r Row) Value { return coerceText(r.Get(ColOEM)) })
	}
	if t.Has(ColSeller) {
		t = t.WithColumn(ColSeller, func(r Row) Value { return coerceText(r.Get(ColSeller)) })
	}

	if t.Has(ColTags) {
		t = t.WithColumn(ColTags, func(r Row) Value {
			v := r.Get(ColTags)
			if v.Kind() != KindString {
				return v
			}
			tags, err := ParseTags(v.Text())
			if err != nil {
				stats.BadTags++
				return Null()
			}
			return List(tags)
		})
	}

	if t.Has(ColListingID) {
		t, stats.ListingIDNum = coerceIdentifier(t, ColListingID, nil)
	}
	return t, stats
}

// coerceIdentifier types an identifier column as numeric when every
// non-null value in t and the extra tables parses, and as text otherwise.
func coerceIdentifier(t *Table, col string, extra []*Table) (*Table, bool) {
	numeric := allNumeric(t, col)
	for _, other := range extra {
		numeric = numeric && allNumeric(other, col)
	}
	return t.WithColumn(col, func(r Row) Value {
		v := r.Get(col)
		if v.IsNull() {
			return v
		}
		if numeric {
			return coerceNumber(v)
		}
		return coerceText(v)
	}), numeric
}

func allNumeric(t *Table, col string) bool {
	if !t.Has(col) {
		return true
	}
	for i := 0; i < t.Len(); i++ {
		v := t.Value(i, col)
		if v.IsNull() {
			continue
		}
		if _, ok := v.Float(); !ok {
			return false
		}
	}
	return true
}

func coerceNumber(v Value) Value {
	switch v.Kind() {
	case KindNumber, KindNull:
		return v
	case KindString:
		s := strings.TrimSpace(v.Text())
		if s == "" {
			return Null()
		}
		f, err := parseNumber(s)
		if err != nil {
			return Null()
		}
		return Number(f)
	default:
		if f, ok := v.Float(); ok {
			return Number(f)
		}
		return Null()
	}
}

// coerceText renders identifiers as text. Whole numbers lose their decimal
// part so 12345 and "12345" group together.
func coerceText(v Value) Value {
	switch v.Kind() {
	case KindNull:
		return v
	case KindNumber:
		f, _ := v.Float()
		if f == float64(int64(f)) {
			return String(strconv.FormatInt(int64(f), 10))
		}
		return String(v.Text())
	case KindString:
		s := strings.TrimSpace(v.Text())
		if s == "" {
			return Null()
		}
		if f, err := parseNumber(s); err == nil && f == float64(int64(f)) && strings.HasSuffix(s, ".0") {
			return String(strconv.FormatInt(int64(f), 10))
		}
		return String(s)
	default:
		return String(v.Text())
	}
}

func coerceTime(v Value) Value {
	switch v.Kind() {
	case KindTime, KindNull:
		return v
	case KindNumber:
		f, _ := v.Float()
		return excelSerialTime(f)
	}
	s := strings.TrimSpace(v.Text())
	if s == "" {
		return Null()
	}
	if t, ok := ParseDate(s); ok {
		return Time(t)
	}
	if f, err := parseNumber(s); err == nil {
		return excelSerialTime(f)
	}
	return Null()
}

func excelSerialTime(serial float64) Value {
	if serial <= 0 {
		return Null()
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return Null()
	}
	return Time(t)
}

// ParseDate parses the date layouts found in marketplace exports.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
