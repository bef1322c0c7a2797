// Copyright 2024-2026 Aiku AI

package msgbuilder

import "unicode/utf8"

// Text budgets, in characters.
const (
	ShortBudget = 72
	LongBudget  = 140
)

// Ellipsis marks a truncated string.
const Ellipsis = "…"

// Shorten keeps at most budget characters of s, appending Ellipsis when it
// had to cut. Shortening an already shortened string is a no-op.
func Shorten(s string, budget int) string {
	if utf8.RuneCountInString(s) <= budget {
		return s
	}
	n := 0
	for i := range s {
		if n == budget {
			return s[:i] + Ellipsis
		}
		n++
	}
	return s
}
