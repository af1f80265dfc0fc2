package provider

import "strconv"

// Helpers for walking decoded JSON payloads. Upstreams disagree on whether
// numbers arrive as JSON numbers or strings, so the numeric accessors accept
// both. Missing or mistyped fields yield zero values; validators decide
// whether that is acceptable.

// AsMap asserts a decoded JSON value to an object.
func AsMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// AsSlice asserts a decoded JSON value to an array.
func AsSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// Str returns m[key] as a string, or "" when absent or not a string.
func Str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// Uint returns m[key] as an unsigned integer, accepting JSON numbers and
// decimal strings.
func Uint(m map[string]any, key string) uint64 {
	switch v := m[key].(type) {
	case float64:
		if v < 0 {
			return 0
		}
		return uint64(v)
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// Int returns m[key] as a signed integer, accepting JSON numbers and decimal
// strings.
func Int(m map[string]any, key string) (int64, bool) {
	switch v := m[key].(type) {
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Map returns m[key] as an object, or nil when absent.
func Map(m map[string]any, key string) map[string]any {
	sub, _ := m[key].(map[string]any)
	return sub
}

// Slice returns m[key] as an array, or nil when absent.
func Slice(m map[string]any, key string) []any {
	s, _ := m[key].([]any)
	return s
}
