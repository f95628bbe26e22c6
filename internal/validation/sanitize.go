package validation

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxCommentLength bounds comment and reply bodies in runes.
const MaxCommentLength = 2000

// MaxPostLength bounds post bodies in runes.
const MaxPostLength = 10000

var strict = bluemonday.StrictPolicy()

// SanitizeText strips all markup and returns plain, trimmed text.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// CleanBody sanitises s and rejects empty or over-long results.
func CleanBody(s string, maxRunes int) (string, error) {
	out := SanitizeText(s)
	if out == "" {
		return "", errors.New("text is required")
	}
	if utf8.RuneCountInString(out) > maxRunes {
		return "", fmt.Errorf("text must be at most %d characters", maxRunes)
	}
	return out, nil
}
