package dataprocessing

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the dynamic type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindTime
	KindBool
	KindList
)

// String returns the kind name used in logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "null"
	}
}

// Value is a single table cell. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	n    float64
	t    time.Time
	list []string
}

// TimeLayout is used when rendering time cells as text.
const TimeLayout = "2006-01-02 15:04:05"

func Null() Value               { return Value{} }
func String(s string) Value     { return Value{kind: KindString, s: s} }
func Time(t time.Time) Value    { return Value{kind: KindTime, t: t} }
func List(items []string) Value { return Value{kind: KindList, list: items} }

// Number returns a numeric cell. NaN and infinities are stored as null.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, n: f}
}

func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.n = 1
	}
	return v
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric reading of the cell. Booleans read as 0/1 and
// numeric strings are parsed; anything else reports false.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber, KindBool:
		return v.n, true
	case KindString:
		f, err := parseNumber(v.s)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// TimeValue returns the time held by a time cell.
func (v Value) TimeValue() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.t, true
}

// BoolValue returns the boolean held by a bool cell.
func (v Value) BoolValue() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.n == 1, true
}

// ListValue returns the items held by a list cell.
func (v Value) ListValue() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// Text renders the cell for display and export. Null renders as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindTime:
		return v.t.Format(TimeLayout)
	case KindBool:
		if v.n == 1 {
			return "true"
		}
		return "false"
	case KindList:
		quoted := make([]string, len(v.list))
		for i, item := range v.list {
			quoted[i] = strconv.Quote(item)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	default:
		return ""
	}
}

// key is the grouping identity of the cell. Null has its own key so null
// values form a group of their own.
func (v Value) key() string {
	switch v.kind {
	case KindNull:
		return "\x00"
	case KindTime:
		return "t" + strconv.FormatInt(v.t.UnixNano(), 10)
	default:
		return string('0'+rune(v.kind)) + v.Text()
	}
}

// Equal reports whether two cells hold the same kind and value.
func (v Value) Equal(other Value) bool {
	return v.key() == other.key()
}

// compare orders two non-null cells. Numbers compare numerically, times
// chronologically and everything else by text.
func (v Value) compare(other Value) int {
	if a, ok := v.Float(); ok && v.kind != KindString {
		if b, ok := other.Float(); ok && other.kind != KindString {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			}
			return 0
		}
	}
	if a, ok := v.TimeValue(); ok {
		if b, ok := other.TimeValue(); ok {
			return a.Compare(b)
		}
	}
	return strings.Compare(v.Text(), other.Text())
}

// MarshalJSON renders numbers and bools natively, times as RFC 3339 and
// null as JSON null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindNumber:
		return json.Marshal(v.n)
	case KindBool:
		return json.Marshal(v.n == 1)
	case KindTime:
		return json.Marshal(v.t.Format(time.RFC3339))
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	default:
		return json.Marshal(v.s)
	}
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return f, nil
}
