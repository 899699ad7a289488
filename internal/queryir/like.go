package queryir

import "strings"

// EscapeLike escapes the LIKE wildcards in s with a backslash, so the
// result matches s literally inside a pattern. Backslashes are doubled
// first.
func EscapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// ContainsPattern returns the LIKE pattern for a substring match on s.
func ContainsPattern(s string) string {
	return "%" + EscapeLike(s) + "%"
}

// PrefixPattern matches values starting with s.
func PrefixPattern(s string) string {
	return EscapeLike(s) + "%"
}

// SuffixPattern matches values ending with s.
func SuffixPattern(s string) string {
	return "%" + EscapeLike(s)
}
