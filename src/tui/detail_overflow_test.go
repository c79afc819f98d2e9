package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"mwa-review/src/contracts"
	"mwa-review/src/sanitize"
	"mwa-review/src/session"
	"mwa-review/src/store"
)

// createTestModel loads contacts through a session over an in-memory backend and sizes
// the model to a 120x40 terminal.
func createTestModel(t *testing.T, contacts []contracts.Contact) (MainModel, *store.MemoryStore) {
	t.Helper()

	mem := store.NewMemoryStore(contacts...)
	s, err := session.New(session.Config{API: mem, ExportDir: t.TempDir()})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	if res := s.Load(context.Background()); res.Err != nil {
		t.Fatalf("load: %v", res.Err)
	}

	m := NewMainModel(context.Background(), s, nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(MainModel), mem
}

func resize(m MainModel, width, height int) MainModel {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	return updated.(MainModel)
}

func overflowingLines(view string, width int) []string {
	var violations []string
	for i, line := range strings.Split(view, "\n") {
		stripped := sanitize.StripANSI(line)
		if w := VisualWidth(stripped); w > width {
			violations = append(violations, fmt.Sprintf(
				"Line %d exceeds terminal width (%d > %d): %s...",
				i, w, width, truncateString(stripped, 100)))
		}
	}
	return violations
}

// TestDetailPanel_PlainLongLinesOverflow checks that long plain fields are wrapped in the
// detail view instead of bleeding into the list panel.
func TestDetailPanel_PlainLongLinesOverflow(t *testing.T) {
	longName := strings.Repeat("Very Long Realty Group Name ", 6)
	longCompany := strings.Repeat("Worldwide Property Holdings and Investments ", 5)
	longSpec := strings.Repeat("luxury waterfront condominiums and mixed-use developments ", 4)

	years := 12
	contacts := []contracts.Contact{
		{
			ID:              "overflow-test",
			Name:            longName,
			Email:           "someone@" + strings.Repeat("subdomain.", 10) + "example.com",
			Company:         longCompany,
			Position:        longCompany,
			AgencyType:      contracts.AgencyRealEstate,
			ConfidenceScore: contracts.Float(0.95),
			MarketAreas:     []contracts.MarketArea{{Name: longCompany, Relevance: 0.8}},
			BusinessContext: &contracts.BusinessContext{Specialization: longSpec, YearsInBusiness: &years},
			Status:          contracts.StatusPending,
			CreatedAt:       time.Now().Add(-time.Hour),
		},
	}

	model, _ := createTestModel(t, contacts)

	// 60% list = 60, 40% detail = 40
	terminalWidth := 100
	m := resize(model, terminalWidth, 30)

	if violations := overflowingLines(m.View(), terminalWidth); len(violations) > 0 {
		t.Errorf("Found %d lines overflowing terminal width:\n%s",
			len(violations), strings.Join(violations, "\n"))
	}

	expectedContentWidth := 40 - 2
	if m.detailViewport.Width > expectedContentWidth {
		t.Errorf("Detail viewport width (%d) exceeds expected content width (%d)",
			m.detailViewport.Width, expectedContentWidth)
	}

	var detailViolations []string
	for i, line := range strings.Split(m.detailViewport.View(), "\n") {
		stripped := sanitize.StripANSI(line)
		if w := VisualWidth(stripped); w > m.detailViewport.Width {
			detailViolations = append(detailViolations, fmt.Sprintf(
				"Detail line %d exceeds viewport width (%d > %d): %s",
				i, w, m.detailViewport.Width, truncateString(stripped, 80)))
		}
	}
	if len(detailViolations) > 0 {
		t.Errorf("Found %d detail lines overflowing viewport width:\n%s",
			len(detailViolations), strings.Join(detailViolations, "\n"))
	}
}

// TestDetailPanel_VeryLongSingleWord tests that words longer than the viewport are broken.
func TestDetailPanel_VeryLongSingleWord(t *testing.T) {
	longWord := strings.Repeat("abcdefghijklmnopqrstuvwxyz", 20)

	contacts := []contracts.Contact{
		{
			ID:         "long-word-test",
			Name:       longWord,
			Company:    longWord,
			LeadSource: longWord,
			Status:     contracts.StatusPending,
			CreatedAt:  time.Now(),
		},
	}

	model, _ := createTestModel(t, contacts)
	terminalWidth := 80
	m := resize(model, terminalWidth, 30)

	if violations := overflowingLines(m.View(), terminalWidth); len(violations) > 0 {
		t.Errorf("Long word test failed - found %d overflowing lines:\n%s",
			len(violations), strings.Join(violations, "\n"))
	}
}

// TestDetailPanel_HostileText checks that escape sequences from the server cannot reach
// the terminal.
func TestDetailPanel_HostileText(t *testing.T) {
	contacts := []contracts.Contact{
		{
			ID:        "hostile",
			Name:      "Mallory\x1b[2J\x1b]0;pwned\x07 Agent",
			Company:   "Evil\r\nCorp",
			Status:    contracts.StatusPending,
			CreatedAt: time.Now(),
		},
	}

	m, _ := createTestModel(t, contacts)
	item, ok := m.listView.GetSelectedItem()
	if !ok {
		t.Fatal("expected a selected item")
	}

	detail := m.renderDetail(item, 60)
	if strings.Contains(detail, "\x1b[2J") || strings.Contains(detail, "pwned\x07") {
		t.Errorf("detail leaked escape sequences: %q", detail)
	}
	if !strings.Contains(sanitize.StripANSI(detail), "Mallory") {
		t.Errorf("expected sanitized name in detail, got %q", detail)
	}
}

// Helper function to truncate a string for display in error messages
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
