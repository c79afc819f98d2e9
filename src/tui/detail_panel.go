package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"mwa-review/src/contracts"
)

// renderDetail renders the detail content for a contact
func (m MainModel) renderDetail(item Item, maxWidth int) string {
	c := item.Contact
	content := strings.Builder{}

	labelStyle := lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(m.styles.PrimaryBlue).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(m.styles.TextPrimary)

	field := func(label, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(&content, "%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(Wrap(CleanText(value), maxWidth-len(label)-2)))
	}

	title := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Render(Truncate(CleanText(c.DisplayName()), maxWidth, true))
	fmt.Fprintf(&content, "%s\n\n", title)

	field("Email", c.Email)
	field("Phone", c.Phone)
	field("Company", c.Company)
	field("Position", c.Position)
	field("Agency", AgencyLabel(c.AgencyType))
	fmt.Fprintf(&content, "%s %s\n", labelStyle.Render("Status:"),
		lipgloss.NewStyle().Foreground(m.styles.StatusColor(c.Status)).Bold(true).Render(string(c.Status)))
	if c.RejectionReason != "" {
		field("Reason", c.RejectionReason)
	}
	field("Confidence", strings.TrimSpace(FormatScore(c.ConfidenceScore)))
	field("Quality", strings.TrimSpace(FormatScore(c.QualityScore)))
	field("Lead source", c.LeadSource)
	field("Extraction", c.ExtractionMethod)
	field("Created", formatTime(c.CreatedAt))
	field("Updated", formatTime(c.UpdatedAt))

	if len(c.MarketAreas) > 0 {
		fmt.Fprintf(&content, "\n%s\n", sectionStyle.Render("Market areas"))
		for _, a := range c.MarketAreas {
			line := fmt.Sprintf("• %s (%s)", CleanText(a.Name), FormatScore(&a.Relevance))
			fmt.Fprintln(&content, valueStyle.Render(Truncate(line, maxWidth, true)))
		}
	}

	if bc := c.BusinessContext; bc != nil {
		fmt.Fprintf(&content, "\n%s\n", sectionStyle.Render("Business context"))
		field("Size", bc.SizeClass)
		field("Specialization", bc.Specialization)
		if bc.PortfolioSize != nil {
			field("Portfolio", strconv.Itoa(*bc.PortfolioSize))
		}
		if bc.YearsInBusiness != nil {
			field("Years", strconv.Itoa(*bc.YearsInBusiness))
		}
	}

	fmt.Fprintf(&content, "\n%s\n", sectionStyle.Render("Scoring"))
	fmt.Fprint(&content, m.renderScoring(c.ID, maxWidth))

	return content.String()
}

func (m MainModel) renderScoring(id contracts.ContactID, maxWidth int) string {
	if err, ok := m.scoringErr[id]; ok {
		return lipgloss.NewStyle().Foreground(m.styles.Error).Render(Wrap("✗ "+err.Error(), maxWidth)) + "\n"
	}
	res, ok := m.scoring[id]
	if !ok || res == nil {
		return lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Faint(true).Render("Press Enter to load scoring") + "\n"
	}

	var b strings.Builder
	overall := res.OverallScore
	fmt.Fprintf(&b, "Overall %s\n", FormatScore(&overall))

	names := make([]string, 0, len(res.Breakdown))
	for name := range res.Breakdown {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := res.Breakdown[name]
		fmt.Fprintf(&b, "  %-14s %s\n", name, FormatScore(&v))
	}
	for _, r := range res.Recommendations {
		fmt.Fprintln(&b, Wrap("→ "+CleanText(r), maxWidth))
	}
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

// refreshDetail re-renders the detail viewport for the contact under the cursor.
func (m *MainModel) refreshDetail() {
	if item, ok := m.listView.GetSelectedItem(); ok {
		m.updateDetailContent(item)
		return
	}
	m.detailViewport.SetContent("")
}

// updateDetailContent updates the viewport with content from the selected item
func (m *MainModel) updateDetailContent(item Item) {
	// 1 char padding on each side
	maxWidth := m.detailViewport.Width - 2
	if maxWidth < 10 {
		maxWidth = 10
	}
	m.detailViewport.SetContent(m.renderDetail(item, maxWidth))
}

// renderDetailPanel renders the right panel with detail viewport
func (m MainModel) renderDetailPanel(width, height int) string {
	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		headerRow := lipgloss.NewStyle().
			Foreground(m.styles.PrimaryBlue).
			Bold(true).
			Padding(0, 1).
			Render(Truncate(fmt.Sprintf("Contact: %s", selectedItem.ID()), width-2, true))

		borderStyle := m.styles.BorderColor
		if m.detailFocused {
			borderStyle = m.styles.AccentBlue
		}

		return lipgloss.JoinVertical(lipgloss.Left, headerRow,
			lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(borderStyle).
				Width(width-2).
				Height(height).
				Render(m.detailViewport.View()))
	}

	placeholderRow := lipgloss.NewStyle().
		Foreground(m.styles.TextSecondary).
		Padding(0, 1).
		Render(" ")

	emptyStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.BorderColor).
		Width(width-2).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(m.styles.TextSecondary).
		Faint(true)

	return lipgloss.JoinVertical(lipgloss.Left, placeholderRow, emptyStyle.Render("← Navigate list to view details"))
}
