package query

import "strings"

// Normalize lowercases the input, trims it, and collapses whitespace runs to
// single spaces. Total over any input, including empty.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
