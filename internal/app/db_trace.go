package app

import "strings"

const maxTracedQueryLen = 512

// formatDBQueryForTrace collapses whitespace so multi-line SQL reads as one
// span attribute, truncating very long statements.
func formatDBQueryForTrace(query string) string {
	compact := strings.Join(strings.Fields(query), " ")
	if len(compact) > maxTracedQueryLen {
		return compact[:maxTracedQueryLen] + "..."
	}
	return compact
}
