package datasource

import (
	"fmt"
	"strconv"
)

// Adapter configs arrive as generic maps decoded from YAML or JSON, so numbers
// may be int or float64 and booleans may be strings.

// StringValue returns the first non-empty string stored under any of keys.
func StringValue(config map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := config[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// RequiredString is StringValue that fails naming the first key.
func RequiredString(config map[string]any, keys ...string) (string, error) {
	if s, ok := StringValue(config, keys...); ok {
		return s, nil
	}
	return "", fmt.Errorf("%s is required", keys[0])
}

// IntValue reads an integer, returning def when the key is absent.
func IntValue(config map[string]any, key string, def int) (int, error) {
	switch v := config[key].(type) {
	case nil:
		return def, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64: // JSON numbers are float64
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid %s: %v", key, v)
	}
}

// BoolValue reads a boolean, returning def when the key is absent.
func BoolValue(config map[string]any, key string, def bool) bool {
	switch v := config[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}
