package store

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Fields holds the values of a document.
// Values are JSON-compatible: string, bool, numbers, nil.
type Fields map[string]any

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge returns a copy of f with the values of other applied on top.
func (f Fields) Merge(other Fields) Fields {
	out := f.Clone()
	if out == nil {
		out = make(Fields, len(other))
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// String returns the string value of key, or "" if absent or not a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Bool returns the bool value of key, or false if absent or not a bool.
func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// Int returns the integer value of key.
// ok is false when the key is absent or does not hold a whole number.
// Numbers decoded from JSON arrive as float64 or json.Number and are accepted.
func (f Fields) Int(key string) (n int, ok bool) {
	switch v := f[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Time returns the timestamp value of key.
// Accepts time.Time values and RFC 3339 strings.
func (f Fields) Time(key string) (time.Time, bool) {
	switch v := f[key].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// TimeLayout is RFC 3339 in UTC with a fixed nine-digit fraction, so stored
// timestamps sort as text.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t the way documents store timestamps.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
