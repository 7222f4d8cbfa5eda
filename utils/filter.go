package utils

import (
	"html"
	"strings"
)

// ContentFilter replaces denylisted substrings with a fixed placeholder.
// Matching is case-sensitive, leftmost-first and non-overlapping; when two
// entries match at the same position the one listed first wins.
type ContentFilter struct {
	replacer *strings.Replacer
}

// NewContentFilter builds a filter. Empty denylist entries are ignored.
// Each entry also matches its HTML-escaped form, since stored bodies are
// escaped by Sanitize.
func NewContentFilter(denylist []string, placeholder string) *ContentFilter {
	pairs := make([]string, 0, len(denylist)*4)
	for _, word := range denylist {
		if word == "" {
			continue
		}
		pairs = append(pairs, word, placeholder)
	}
	for _, word := range denylist {
		if escaped := html.EscapeString(word); escaped != word {
			pairs = append(pairs, escaped, placeholder)
		}
	}
	if len(pairs) == 0 {
		return &ContentFilter{}
	}
	return &ContentFilter{replacer: strings.NewReplacer(pairs...)}
}

// Apply returns text with every denylisted occurrence substituted.
func (f *ContentFilter) Apply(text string) string {
	if f == nil || f.replacer == nil || text == "" {
		return text
	}
	return f.replacer.Replace(text)
}
