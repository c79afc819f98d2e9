package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// panelDimensions holds calculated layout dimensions
type panelDimensions struct {
	availableHeight int
	leftPanelWidth  int
	rightPanelWidth int
}

// calculateDimensions computes panel sizes based on terminal dimensions.
// Render and resize both go through it so they agree.
func (m MainModel) calculateDimensions() panelDimensions {
	headerHeight := lipgloss.Height(m.header.Render(m.width))
	// header + banner (1) + help line (1) + panel column header row (1) + panel borders (2)
	availableHeight := m.height - headerHeight - 1 - 1 - 1 - 2
	if availableHeight < 1 {
		availableHeight = 1
	}

	// Contact list (60%) | Detail (40%)
	leftPanelWidth := int(float64(m.width) * 0.6)
	rightPanelWidth := m.width - leftPanelWidth

	return panelDimensions{
		availableHeight: availableHeight,
		leftPanelWidth:  leftPanelWidth,
		rightPanelWidth: rightPanelWidth,
	}
}

// View renders the complete TUI layout
func (m MainModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := m.header.Render(m.width)

	// Still loading with nothing to show: progress with logo
	if m.status == StatusLoading && len(m.items) == 0 {
		centeredProgress := lipgloss.NewStyle().
			Width(m.width).
			Align(lipgloss.Center).
			PaddingTop(2).
			Render(m.progress.View())
		return lipgloss.JoinVertical(lipgloss.Left, header, centeredProgress)
	}

	dims := m.calculateDimensions()

	leftPanel := m.renderListPanel(dims.leftPanelWidth, dims.availableHeight)
	rightPanel := m.renderDetailPanel(dims.rightPanelWidth, dims.availableHeight)
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)

	return lipgloss.JoinVertical(lipgloss.Left, header, m.renderBanner(), mainContent, m.renderHelpText())
}

// renderBanner renders the one-line status area: prompts first, then errors, notices and
// bulk messages. It always takes one line so the panels do not jump.
func (m MainModel) renderBanner() string {
	var text string
	color := m.styles.TextSecondary

	switch {
	case m.inputMode == inputReason:
		text = m.input.View()
		color = m.styles.Warning
	case m.confirm != "":
		text = fmt.Sprintf("Really %s %d selected contacts? (y/n)", m.confirm, m.snap.SelectedCount)
		color = m.styles.Warning
	case m.snap != nil && m.snap.Err != nil:
		text = "✗ " + m.snap.Err.Error()
		if m.snap.Err.Retryable {
			text += " • (r) retry"
		}
		text += " • (Esc) dismiss"
		color = m.styles.Error
	case m.snap != nil && m.snap.Notice != nil:
		n := m.snap.Notice
		text = fmt.Sprintf("🔔 %s: %s", CleanText(n.Title), CleanText(n.Message))
		color = m.styles.PrimaryBlue
	case m.message != "":
		text = m.message
		color = m.styles.TextPrimary
	}

	return m.styles.BannerStyle(color).
		Width(m.width).
		MaxWidth(m.width).
		Render(Truncate(text, m.width-4, true))
}

// renderHelpText renders context-aware help text at the bottom
func (m MainModel) renderHelpText() string {
	keyStyle := lipgloss.NewStyle().Foreground(m.styles.PrimaryBlue).Bold(true)
	sepStyle := lipgloss.NewStyle().Foreground(m.styles.TextSecondary)

	var pairs [][2]string
	switch {
	case m.inputMode != inputNone:
		pairs = [][2]string{{"Enter", "Apply"}, {"Esc", "Cancel"}}
	case m.confirm != "":
		pairs = [][2]string{{"y", "Confirm"}, {"n", "Cancel"}}
	case m.detailFocused:
		pairs = [][2]string{{"j/k", "Scroll"}, {"Esc", "Back"}, {"q", "Quit"}}
	default:
		pairs = [][2]string{
			{"j/k", "Nav"}, {"n/p", "Page"}, {"Space", "Select"}, {"A", "All"},
			{"a/s/c", "Filter"}, {"o/O", "Sort"}, {"/", "Search"},
			{"v/R/e/D", "Verify/Reject/Export/Delete"}, {"Enter", "Detail"}, {"q", "Quit"},
		}
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s: %s", keyStyle.Render(p[0]), p[1]))
	}
	helpText := strings.Join(parts, " "+sepStyle.Render("•")+" ")

	return m.styles.HelpStyle().MaxWidth(m.width).Render(helpText)
}

// resizeComponents handles window resize events
func (m *MainModel) resizeComponents() {
	dims := m.calculateDimensions()

	// accounting for panel borders
	m.listView.SetSize(dims.leftPanelWidth-2, dims.availableHeight)

	// accounting for borders and the contact header row
	m.detailViewport.Width = dims.rightPanelWidth - 2
	m.detailViewport.Height = dims.availableHeight - 1

	m.refreshDetail()
}
