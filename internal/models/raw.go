package models

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// RawRecord is one item of a portal API payload, decoded from JSON without a fixed shape.
// Accessors take dotted paths ("reconciliation.id") and never panic on missing or
// non-object intermediate values.
type RawRecord map[string]interface{}

// Lookup returns the value at a dotted path.
func (r RawRecord) Lookup(path string) (interface{}, bool) {
	if r == nil || path == "" {
		return nil, false
	}

	var current interface{} = map[string]interface{}(r)
	for _, part := range strings.Split(path, ".") {
		var obj map[string]interface{}
		switch v := current.(type) {
		case map[string]interface{}:
			obj = v
		case RawRecord:
			obj = v
		default:
			return nil, false
		}

		next, ok := obj[part]
		if !ok || next == nil {
			return nil, false
		}
		current = next
	}

	return current, true
}

// Object returns the nested object at path as a RawRecord.
func (r RawRecord) Object(path string) (RawRecord, bool) {
	v, ok := r.Lookup(path)
	if !ok {
		return nil, false
	}
	switch obj := v.(type) {
	case map[string]interface{}:
		return RawRecord(obj), true
	case RawRecord:
		return obj, true
	default:
		return nil, false
	}
}

// List returns the array at path.
func (r RawRecord) List(path string) ([]interface{}, bool) {
	v, ok := r.Lookup(path)
	if !ok {
		return nil, false
	}
	list, ok := v.([]interface{})
	return list, ok
}

// String returns the first non-empty scalar found along the fallback chain of paths.
func (r RawRecord) String(paths ...string) (string, bool) {
	for _, path := range paths {
		v, ok := r.Lookup(path)
		if !ok {
			continue
		}
		if s, ok := scalarString(v); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// StringOr is String with a literal placeholder as the last link of the chain.
func (r RawRecord) StringOr(placeholder string, paths ...string) string {
	if s, ok := r.String(paths...); ok {
		return s
	}
	return placeholder
}

// Int64 returns the first value along paths that is a whole number.
func (r RawRecord) Int64(paths ...string) (int64, bool) {
	for _, path := range paths {
		v, ok := r.Lookup(path)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			if n == float64(int64(n)) {
				return int64(n), true
			}
		case int:
			return int64(n), true
		case int64:
			return n, true
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return i, true
			}
		case string:
			if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
				return i, true
			}
		}
	}
	return 0, false
}

// Bool returns the first value along paths that reads as a boolean flag.
func (r RawRecord) Bool(paths ...string) (bool, bool) {
	for _, path := range paths {
		v, ok := r.Lookup(path)
		if !ok {
			continue
		}
		switch b := v.(type) {
		case bool:
			return b, true
		case float64:
			return b != 0, true
		case json.Number:
			if f, err := b.Float64(); err == nil {
				return f != 0, true
			}
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true", "yes", "y", "1":
				return true, true
			case "false", "no", "n", "0":
				return false, true
			}
		}
	}
	return false, false
}

// Decimal returns the first value along paths that parses as a decimal amount.
func (r RawRecord) Decimal(paths ...string) (decimal.Decimal, bool) {
	for _, path := range paths {
		v, ok := r.Lookup(path)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return decimal.NewFromFloat(n), true
		case json.Number:
			if d, err := decimal.NewFromString(n.String()); err == nil {
				return d, true
			}
		case string:
			cleaned := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
			if d, err := decimal.NewFromString(cleaned); err == nil {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

func scalarString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}
