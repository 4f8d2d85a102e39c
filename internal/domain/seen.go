package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// digitRunRe extracts runs of digits from free-form seen-list strings,
// e.g. "1, 3, 5" or "M13 M31" → 1, 3, 5 / 13, 31.
var digitRunRe = regexp.MustCompile(`\d+`)

// CoerceSeen converts the loosely typed seen field of a request into a set
// of catalog numbers. Requests encode it as a comma-separated string, a JSON
// array of numbers or numeric strings, or a single number; anything that
// cannot be coerced is silently dropped.
func CoerceSeen(v any) map[int]struct{} {
	out := make(map[int]struct{})
	switch s := v.(type) {
	case nil:
	case string:
		for _, run := range digitRunRe.FindAllString(s, -1) {
			if n, err := strconv.Atoi(run); err == nil {
				out[n] = struct{}{}
			}
		}
	case []any:
		for _, el := range s {
			addSeen(out, el)
		}
	case []int:
		for _, n := range s {
			out[n] = struct{}{}
		}
	case []string:
		for _, el := range s {
			addSeen(out, el)
		}
	case []float64:
		for _, f := range s {
			out[int(f)] = struct{}{}
		}
	default:
		addSeen(out, v)
	}
	return out
}

// addSeen coerces a single element to an int. Strings must be plain integers
// here; free-form strings are only scanned at the top level.
func addSeen(set map[int]struct{}, el any) {
	switch x := el.(type) {
	case float64:
		set[int(x)] = struct{}{}
	case int:
		set[x] = struct{}{}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			set[n] = struct{}{}
		}
	}
}
