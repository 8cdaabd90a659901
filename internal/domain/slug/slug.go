// Package slug derives URL-safe identifiers from display names.
package slug

import (
	"crypto/rand"
	"strings"
	"unicode"
)

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Make lossily transforms a title to an ASCII lowercase hyphenated slug.
// Non-alphanumeric runs collapse to a single hyphen; leading and trailing
// hyphens are trimmed.
func Make(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			// Lossy ASCII transform: drop non-ASCII letters/digits.
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.TrimRight(b.String(), "-")
}

// Suffix returns n random lowercase alphanumeric characters for collision
// resolution.
func Suffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; zero bytes
		// still produce a valid suffix.
		_ = err
	}
	for i := range buf {
		buf[i] = suffixAlphabet[int(buf[i])%len(suffixAlphabet)]
	}
	return string(buf)
}
