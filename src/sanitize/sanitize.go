// Package sanitize cleans strings received from the contact backend before they reach a
// terminal. Names, companies and notification texts are user-controlled input and may carry
// escape sequences that would repaint or hijack the dashboard.
package sanitize

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

// StripANSI removes ANSI escape sequences (CSI, OSC, DCS, APC and friends).
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Clean strips escape sequences, normalises line endings and drops the remaining control
// characters except newline and tab. Surrounding whitespace is trimmed.
func Clean(s string) string {
	s = StripANSI(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Line is Clean for single-line fields: newlines and tabs collapse to a single space.
func Line(s string) string {
	s = Clean(s)
	return strings.Join(strings.Fields(s), " ")
}
