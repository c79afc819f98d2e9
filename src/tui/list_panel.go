package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// columnHeader renders the column titles aligned with Delegate.Render for a list of width.
func columnHeader(width int) string {
	nameWidth, companyWidth := columnWidths(width)
	cols := []string{
		TruncateAndPad("Sel", markWidth, false),
		TruncateAndPad("Name", nameWidth, false),
	}
	if companyWidth > 0 {
		cols = append(cols, TruncateAndPad("Company", companyWidth, false))
	}
	cols = append(cols,
		TruncateAndPad("Agency", agencyWidth, false),
		TruncateAndPad("Cf", scoreWidth, false),
		TruncateAndPad("Ql", scoreWidth, false),
		TruncateAndPad("Status", statusWidth, false),
		fmt.Sprintf("%*s", ageWidth, "Age"),
	)
	return strings.Join(cols, " │ ")
}

// renderListPanel renders the left panel with the contact page
func (m MainModel) renderListPanel(width, height int) string {
	// list size is set in resizeComponents(), not here during render
	body := m.listView.Render()
	if len(m.items) == 0 {
		body = lipgloss.NewStyle().
			Foreground(m.styles.TextSecondary).
			Faint(true).
			Padding(1, 2).
			Render(m.emptyListText())
	}

	listPanel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.BorderColor).
		Width(width - 2).
		Height(height).
		Render(body)

	// Truncate to width-4 to account for padding (2 chars)
	headerText := Truncate(columnHeader(width-2), width-4, true)
	headerRow := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Width(width-2).
		Padding(0, 1).
		Render(headerText)

	return lipgloss.JoinVertical(lipgloss.Left, headerRow, listPanel)
}

func (m MainModel) emptyListText() string {
	switch {
	case m.snap == nil || len(m.snap.Contacts) == 0:
		return "No contacts yet. Press (r) to reload"
	case m.snap.Query.Search != "" || !m.snap.Query.Filter.IsEmpty():
		return "No contacts match. Press (C) to clear filters or (Esc) to clear search"
	default:
		return "No contacts on this page"
	}
}
