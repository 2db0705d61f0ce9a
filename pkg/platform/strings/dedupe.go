// Package strings holds small normalization helpers shared across modules.
package strings

import "strings"

// DedupeAndTrim normalizes a caller-supplied list such as verification
// evidence references: whitespace is trimmed, empty entries are dropped, and
// repeats keep only their first occurrence. Order of first occurrence is
// preserved so stored lists read the way the caller submitted them.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
