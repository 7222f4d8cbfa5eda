package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	bodyPolicy  = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans user supplied HTML in post, comment and message bodies.
func Sanitize(input string) string {
	return bodyPolicy.Sanitize(input)
}

// StripTags removes all markup from short single-line fields such as names and bios.
func StripTags(input string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(input))
}
