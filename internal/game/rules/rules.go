// Package rules holds the pure decision functions for player actions:
// movement bounds checking and chat sanitation. Nothing in this package
// touches state; the Store and Dispatcher consume these.
package rules

import (
	"strings"
	"unicode"
)

// MaxChatLength is the cap applied to chat content, counted in runes of the
// raw (trimmed) input.
const MaxChatLength = 100

// InBounds reports whether p is a legal position on a width x height grid.
// Valid coordinates are [0, width) x [0, height).
//
// Precondition: width and height must be > 0.
func InBounds(x, y, width, height int) bool {
	return x >= 0 && x < width && y >= 0 && y < height
}

// SanitizeChat normalizes raw chat input: whitespace is trimmed, the result
// is truncated to max runes, and disallowed characters are stripped.
//
// Truncation happens before filtering, so the cap counts raw characters of
// the trimmed input; filtering may shorten the result further. This order is
// deliberate and fixed by tests.
//
// Allowed characters: letters, digits, underscore, whitespace, and the
// punctuation ! ? . ,
func SanitizeChat(raw string, max int) string {
	trimmed := strings.TrimSpace(raw)

	runes := []rune(trimmed)
	if len(runes) > max {
		runes = runes[:max]
	}

	var b strings.Builder
	b.Grow(len(runes))
	for _, r := range runes {
		if allowedChatRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allowedChatRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '_', '!', '?', '.', ',':
		return true
	}
	return false
}

// SanitizeName normalizes a player display name with the chat character
// policy and a shorter cap, collapsing to empty when nothing survives.
func SanitizeName(raw string, max int) string {
	return strings.TrimSpace(SanitizeChat(raw, max))
}
