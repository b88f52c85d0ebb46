package tsindex

import "strings"

const (
	// ContextLines is the number of lines kept on each side of a match.
	ContextLines = 6
	// MaxPreviewChars bounds a preview before the "..." marker.
	MaxPreviewChars = 400
)

// Window returns the trimmed ±ContextLines excerpt around lines[idx],
// truncated to MaxPreviewChars plus "..." when longer.
func Window(lines []string, idx int) string {
	start := max(0, idx-ContextLines)
	end := min(len(lines), idx+ContextLines+1)
	if start >= end {
		return ""
	}
	return Truncate(strings.TrimSpace(strings.Join(lines[start:end], "\n")))
}

// Truncate cuts s to MaxPreviewChars runes and appends "..." when it was longer.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxPreviewChars {
		return s
	}
	return string(runes[:MaxPreviewChars]) + "..."
}
