package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Record is a loosely typed JSON object from the Bangumi API.
//
// Upstream payloads are not reliable: fields go missing, ids arrive as
// strings, counts arrive as floats. Accessors never panic; they report
// whether the field was present with a usable type.
type Record map[string]any

// AsRecord returns v as a Record if it is a JSON object
func AsRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, m != nil
	case map[string]any:
		return Record(m), m != nil
	}
	return nil, false
}

// Has reports whether key is present and not null
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Raw returns the value stored under key
func (r Record) Raw(key string) (any, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Object returns the nested object stored under key
func (r Record) Object(key string) (Record, bool) {
	v, ok := r.Raw(key)
	if !ok {
		return nil, false
	}
	return AsRecord(v)
}

// List returns the array stored under key
func (r Record) List(key string) ([]any, bool) {
	v, ok := r.Raw(key)
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	return list, ok
}

// String returns the value under key rendered as text.
// Strings are returned as-is; numbers and booleans are formatted.
func (r Record) String(key string) (string, bool) {
	v, ok := r.Raw(key)
	if !ok {
		return "", false
	}
	return Text(v)
}

// Int returns the value under key coerced to an integer.
// Floats are truncated; strings must hold an integer literal.
func (r Record) Int(key string) (int, bool) {
	v, ok := r.Raw(key)
	if !ok {
		return 0, false
	}
	return Int(v)
}

// Float returns the value under key coerced to a float
func (r Record) Float(key string) (float64, bool) {
	v, ok := r.Raw(key)
	if !ok {
		return 0, false
	}
	return Float(v)
}

// Text renders a scalar JSON value as text
func Text(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// Int coerces a scalar JSON value to an integer
func Int(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return truncate(t)
	case float32:
		return truncate(float64(t))
	case json.Number:
		if i, err := strconv.Atoi(t.String()); err == nil {
			return i, true
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return truncate(f)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// Float coerces a scalar JSON value to a float
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return finite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	}
	return 0, false
}

func truncate(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
