package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration safely parses duration strings like "5m", with a fallback.
func ParseDuration(d string, fallback time.Duration) time.Duration {
	if d == "" {
		return fallback
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return fallback
	}
	return duration
}

// ParseValue guesses the narrowest type for a raw string value.
func ParseValue(s string) interface{} {
	s = strings.TrimSpace(s)

	// try int
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	// try float
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	// try bool
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// AsInt64 converts supported numeric types to int64.
func AsInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case []byte:
		i, err := strconv.ParseInt(string(val), 10, 64)
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(val, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// AsFloat64 converts supported numeric types to float64. Integers count as
// floats so mixed int/float columns settle on double.
func AsFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case []byte:
		f, err := strconv.ParseFloat(string(val), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		if i, ok := AsInt64(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}

// AsBool converts supported types to bool.
func AsBool(v interface{}) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case int64:
		if val == 0 || val == 1 {
			return val == 1, true
		}
		return false, false
	case string:
		b, err := strconv.ParseBool(val)
		return b, err == nil
	default:
		return false, false
	}
}

// Stringify renders any cell value as a string. Byte slices from database
// drivers come out as text, not as a byte dump.
func Stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}
