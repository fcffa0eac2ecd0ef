// Package fields extracts canonical values from loosely-typed upstream records
// by trying ordered lists of known key aliases.
package fields

import (
	"encoding/json"
	"math"
	"strconv"

	"busnear.dev/internal/models"
)

// Resolve returns the value of the first key whose value is present and
// truthy. The second result is false when no key matched.
func Resolve(record models.RawRecord, keys ...string) (any, bool) {
	for _, k := range keys {
		v, ok := record[k]
		if ok && Truthy(v) {
			return v, true
		}
	}
	return nil, false
}

// Present is like Resolve but only skips nil values and empty strings, for
// fields where zero carries meaning (distances).
func Present(record models.RawRecord, keys ...string) (any, bool) {
	for _, k := range keys {
		v, ok := record[k]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// String resolves keys and returns the textual form of the match, or
// fallback when nothing matched.
func String(record models.RawRecord, fallback string, keys ...string) string {
	if s, ok := OptionalString(record, keys...); ok {
		return s
	}
	return fallback
}

// OptionalString returns the textual form of the first truthy value that
// has one. Arrays and objects are skipped in favour of later keys.
func OptionalString(record models.RawRecord, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := Resolve(record, k)
		if !ok {
			continue
		}
		if s, ok := Text(v); ok {
			return s, true
		}
	}
	return "", false
}

// Truthy reports whether v counts as a usable value: not nil, not an empty
// string, not numeric zero, not false and not an empty array or object.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t != ""
		}
		return f != 0
	case float64:
		return t != 0
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case models.RawRecord:
		return len(t) > 0
	default:
		return true
	}
}

// Text returns the textual form of a JSON scalar. Arrays, objects and nil
// have no textual form.
func Text(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
