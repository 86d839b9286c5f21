// Package input handles user-entered profession text before it reaches the pipeline.
package input

import "strings"

// AddProfession appends prof to the accumulating comma-separated text unless
// the text already contains it. The containment check is case-sensitive and
// substring based, matching how quick-select buttons behave.
func AddProfession(current, prof string) string {
	prof = strings.TrimSpace(prof)
	if prof == "" || strings.Contains(current, prof) {
		return current
	}

	current = strings.TrimSpace(current)
	if current == "" {
		return prof
	}
	return current + ", " + prof
}

// Dedupe folds every comma-separated entry of raw through AddProfession,
// so "pilot, pilot, hacker" becomes "pilot, hacker".
func Dedupe(raw string) string {
	var out string
	for _, part := range strings.Split(raw, ",") {
		out = AddProfession(out, part)
	}
	return out
}
