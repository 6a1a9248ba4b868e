package utils

import (
	"fmt"
	"strconv"
)

// ToStringSlice flattens a stored form value into strings. Values that have been
// through a JSON round trip arrive as []any and float64, fresh ones as []string.
func ToStringSlice(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, ToString(item))
		}
		return out
	default:
		return []string{ToString(t)}
	}
}

// ToString renders a scalar form value the way it would have been typed.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case []string:
		if len(t) == 0 {
			return ""
		}
		return t[0]
	default:
		return fmt.Sprint(t)
	}
}

func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}
