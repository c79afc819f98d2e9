package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"mwa-review/src/sanitize"
)

// CleanText prepares server-provided text for a single table cell: escape sequences and
// control characters are removed and whitespace collapsed.
func CleanText(s string) string {
	return sanitize.Line(s)
}

// FormatScore renders a 0..1 score as ".85", or "  -" when missing.
func FormatScore(p *float64) string {
	if p == nil {
		return "  -"
	}
	v := *p
	if v >= 0.995 {
		return "1.0"
	}
	if v < 0 {
		v = 0
	}
	return fmt.Sprintf("%.2f", v)[1:]
}

// FormatAge renders the time since t in the largest whole unit ("5m", "3h", "12d").
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}
}

// VisualWidth returns the terminal cell width of s.
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate trims s to at most maxLen cells, ending in "..." when ellipsis is set and there
// is room for it.
func Truncate(s string, maxLen int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	switch {
	case maxLen <= 0:
		return ""
	case VisualWidth(s) <= maxLen:
		return s
	case ellipsis && maxLen > 3:
		return runewidth.Truncate(s, maxLen, "...")
	default:
		return runewidth.Truncate(s, maxLen, "")
	}
}

// TruncateAndPad truncates s and right-pads it to exactly width cells, for table columns.
func TruncateAndPad(s string, width int, ellipsis bool) string {
	return runewidth.FillRight(Truncate(s, width, ellipsis), width)
}

// Wrap word-wraps text to width cells. Whitespace runs collapse to single spaces and words
// wider than a line (URLs, ids) are split across lines.
func Wrap(text string, width int) string {
	words := strings.Fields(text)
	if width <= 0 || len(words) == 0 {
		return text
	}

	var lines []string
	var line strings.Builder
	lineWidth := 0
	flush := func() {
		if lineWidth > 0 {
			lines = append(lines, line.String())
			line.Reset()
			lineWidth = 0
		}
	}

	for _, word := range words {
		w := VisualWidth(word)
		if w > width {
			flush()
			chunks := hardBreak(word, width)
			lines = append(lines, chunks[:len(chunks)-1]...)
			last := chunks[len(chunks)-1]
			line.WriteString(last)
			lineWidth = VisualWidth(last)
			continue
		}
		if lineWidth > 0 && lineWidth+1+w > width {
			flush()
		}
		if lineWidth > 0 {
			line.WriteByte(' ')
			lineWidth++
		}
		line.WriteString(word)
		lineWidth += w
	}
	flush()
	return strings.Join(lines, "\n")
}

// hardBreak splits word into chunks of at most width cells.
func hardBreak(word string, width int) []string {
	var chunks []string
	var chunk strings.Builder
	chunkWidth := 0
	for _, r := range word {
		rw := runewidth.RuneWidth(r)
		if chunkWidth+rw > width && chunkWidth > 0 {
			chunks = append(chunks, chunk.String())
			chunk.Reset()
			chunkWidth = 0
		}
		chunk.WriteRune(r)
		chunkWidth += rw
	}
	return append(chunks, chunk.String())
}
