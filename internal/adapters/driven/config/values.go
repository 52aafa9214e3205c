// Package config holds value coercion shared by the ConfigStore adapters.
//
// Values reach a store from three places: TOML decoding (int64, float64,
// []any), programmatic Set calls (native Go types) and environment
// variables (always strings). The helpers here accept all three.
package config

import (
	"strconv"
	"strings"
	"time"
)

// AsString converts v to a string. Non-string values yield "".
func AsString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}

// AsInt converts v to an int. Unparseable values yield 0.
func AsInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case int32:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// AsFloat converts v to a float64. Unparseable values yield 0.
func AsFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// AsBool converts v to a bool. Strings use strconv.ParseBool rules.
func AsBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	default:
		return false
	}
}

// AsDuration converts v to a time.Duration.
// Strings use time.ParseDuration; bare integers are milliseconds.
func AsDuration(v any) time.Duration {
	switch d := v.(type) {
	case time.Duration:
		return d
	case string:
		s := strings.TrimSpace(d)
		if parsed, err := time.ParseDuration(s); err == nil {
			return parsed
		}
		if ms, err := strconv.Atoi(s); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
		return 0
	case int, int64, float64:
		return time.Duration(AsInt(d)) * time.Millisecond
	default:
		return 0
	}
}

// AsStringSlice converts v to a []string.
// Strings are split on commas, which is how lists arrive from the environment.
func AsStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		result := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	case string:
		if strings.TrimSpace(s) == "" {
			return nil
		}
		parts := strings.Split(s, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		return result
	default:
		return nil
	}
}
