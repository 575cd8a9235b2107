package enums

import (
	"fmt"
	"slices"
)

func known[T ~string](v T, set []T) bool {
	return slices.Contains(set, v)
}

// parse matches raw against set after normalize, if any. kind only names
// the enum in the error.
func parse[T ~string](kind, raw string, set []T, normalize func(string) string) (T, error) {
	candidate := raw
	if normalize != nil {
		candidate = normalize(raw)
	}
	if v := T(candidate); known(v, set) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
