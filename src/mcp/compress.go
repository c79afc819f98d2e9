package mcp

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"mwa-review/src/contracts"
	"mwa-review/src/sanitize"
)

// maxFieldWidth bounds single text fields in tool output.
const maxFieldWidth = 120

// maxMarketAreas is the number of market areas kept per summary, most relevant first.
const maxMarketAreas = 3

// whitespacePattern matches multiple consecutive whitespace characters.
var whitespacePattern = regexp.MustCompile(`\s+`)

// normalizeWhitespace collapses multiple spaces/tabs and trims.
func normalizeWhitespace(line string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
}

// compactText sanitizes s for tool output and truncates it to maxFieldWidth columns.
func compactText(s string) string {
	s = normalizeWhitespace(sanitize.Line(s))
	return runewidth.Truncate(s, maxFieldWidth, "...")
}

// compactMarketAreas renders the most relevant areas as "name (0.80)".
func compactMarketAreas(areas []contracts.MarketArea) []string {
	if len(areas) == 0 {
		return nil
	}
	sorted := append([]contracts.MarketArea(nil), areas...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Relevance > sorted[j].Relevance
	})
	if len(sorted) > maxMarketAreas {
		sorted = sorted[:maxMarketAreas]
	}
	out := make([]string, len(sorted))
	for i, a := range sorted {
		out[i] = fmt.Sprintf("%s (%.2f)", compactText(a.Name), a.Relevance)
	}
	return out
}

// summarizeContact converts a contact to its compact tool form.
func summarizeContact(c contracts.Contact) ContactSummary {
	s := ContactSummary{
		ID:          string(c.ID),
		Name:        compactText(c.DisplayName()),
		Email:       compactText(c.Email),
		Phone:       compactText(c.Phone),
		Company:     compactText(c.Company),
		AgencyType:  string(c.AgencyType),
		Status:      string(c.Status),
		Confidence:  c.ConfidenceScore,
		Quality:     c.QualityScore,
		MarketAreas: compactMarketAreas(c.MarketAreas),
	}
	if !c.CreatedAt.IsZero() {
		s.CreatedAt = c.CreatedAt.UTC().Format(time.RFC3339)
	}
	return s
}

// sanitizeContact returns a copy of c with every free-text field cleaned for tool output.
func sanitizeContact(c contracts.Contact) contracts.Contact {
	out := c.Clone()
	out.Name = sanitize.Line(c.Name)
	out.Email = sanitize.Line(c.Email)
	out.Phone = sanitize.Line(c.Phone)
	out.Company = sanitize.Line(c.Company)
	out.Position = sanitize.Line(c.Position)
	out.LeadSource = sanitize.Line(c.LeadSource)
	out.RejectionReason = sanitize.Clean(c.RejectionReason)
	for i := range out.MarketAreas {
		out.MarketAreas[i].Name = sanitize.Line(out.MarketAreas[i].Name)
	}
	if bc := out.BusinessContext; bc != nil {
		bc.SizeClass = sanitize.Line(bc.SizeClass)
		bc.Specialization = sanitize.Line(bc.Specialization)
	}
	return out
}
