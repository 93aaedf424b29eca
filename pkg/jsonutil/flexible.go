package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Object returns val as a JSON object, or nil and false when it is something else.
func Object(val any) (map[string]any, bool) {
	obj, ok := val.(map[string]any)
	return obj, ok && obj != nil
}

// Slice returns val as a JSON array. Typed slices of objects are accepted too,
// since drivers hand back []map[string]any as often as []any.
func Slice(val any) ([]any, bool) {
	switch v := val.(type) {
	case []any:
		return v, true
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}

// Number converts a JSON number to float64. Numeric strings are accepted,
// booleans and everything else are not.
func Number(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// String renders a scalar JSON value as a string. Returns empty string for null.
func String(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

// Truthy reports whether a decoded JSON value is non-empty: null, "", false,
// zero and empty collections are all falsy.
func Truthy(val any) bool {
	switch v := val.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		if f, ok := Number(val); ok {
			return f != 0
		}
		return true
	}
}
