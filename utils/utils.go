package utils

import (
	"fmt"
	"strconv"
	"strings"
)

func UrlQuery(s string) string { return strings.ReplaceAll(s, " ", "+") }

func Str(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// Num coerces JSON-decoded values (float64, int, numeric string) to float64.
func Num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f
	default:
		return 0
	}
}

// NormKey lowercases and trims a lookup key for case-insensitive matching.
func NormKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
