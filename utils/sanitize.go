package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	bodySanitizer = bluemonday.UGCPolicy()
	textSanitizer = bluemonday.StrictPolicy()
)

// Sanitize cleans post bodies, keeping user-generated-content markup.
func Sanitize(input string) string {
	return strings.TrimSpace(bodySanitizer.Sanitize(strings.TrimSpace(input)))
}

// SanitizeText trims a plain-text field and strips every tag from it.
func SanitizeText(input string) string {
	return strings.TrimSpace(textSanitizer.Sanitize(strings.TrimSpace(input)))
}
