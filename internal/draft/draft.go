// Package draft turns raw task strings into structured task drafts and validates them.
package draft

import "strings"

// Draft is a parsed candidate task that has not been persisted yet.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// separators are tried in priority order; only the first occurrence splits.
var separators = []string{" - ", ": ", " – "}

// Parse maps each raw string to exactly one draft, preserving order.
func Parse(raw []string) []Draft {
	drafts := make([]Draft, 0, len(raw))
	for _, item := range raw {
		drafts = append(drafts, parseOne(item))
	}
	return drafts
}

func parseOne(raw string) Draft {
	trimmed := strings.TrimSpace(raw)

	for _, sep := range separators {
		before, after, found := strings.Cut(trimmed, sep)
		if !found {
			continue
		}
		title := strings.TrimSpace(before)
		description := strings.TrimSpace(after)
		if title != "" && description != "" {
			return Draft{Title: title, Description: description}
		}
	}

	return Draft{Title: trimmed}
}

// Valid reports whether drafts is non-empty and every title has content after trimming.
func Valid(drafts []Draft) bool {
	if len(drafts) == 0 {
		return false
	}
	for _, d := range drafts {
		if strings.TrimSpace(d.Title) == "" {
			return false
		}
	}
	return true
}

// Fallback wraps a whole transcript into a single draft.
func Fallback(transcript string) []Draft {
	return []Draft{{Title: transcript}}
}
