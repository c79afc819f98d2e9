package tui

import (
	"github.com/charmbracelet/lipgloss"

	"mwa-review/src/collection"
	"mwa-review/src/contracts"
)

// StyleConfig holds all customizable style colors for the dashboard.
type StyleConfig struct {
	// Primary colors
	PrimaryBlue    lipgloss.Color
	AccentBlue     lipgloss.Color
	DarkBackground lipgloss.Color
	CardBackground lipgloss.Color
	TextPrimary    lipgloss.Color
	TextSecondary  lipgloss.Color
	BorderColor    lipgloss.Color
	SelectedColor  lipgloss.Color

	// Status colors
	Pending  lipgloss.Color
	Approved lipgloss.Color
	Rejected lipgloss.Color
	Warning  lipgloss.Color
	Error    lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:    lipgloss.Color("#8AB4F8"),
		AccentBlue:     lipgloss.Color("#4285F4"),
		DarkBackground: lipgloss.Color("#1E1E1E"),
		CardBackground: lipgloss.Color("#2D2D2D"),
		TextPrimary:    lipgloss.Color("#E8EAED"),
		TextSecondary:  lipgloss.Color("#9AA0A6"),
		BorderColor:    lipgloss.Color("#5F6368"),
		SelectedColor:  lipgloss.Color("#303134"),
		Pending:        lipgloss.Color("#FBBC04"), // Yellow
		Approved:       lipgloss.Color("#34A853"), // Green
		Rejected:       lipgloss.Color("#EA4335"), // Red
		Warning:        lipgloss.Color("#FBBC04"),
		Error:          lipgloss.Color("#EA4335"),
	}
}

// StatusColor returns the color for an approval status.
func (s *StyleConfig) StatusColor(status contracts.ApprovalStatus) lipgloss.Color {
	switch status {
	case contracts.StatusApproved:
		return s.Approved
	case contracts.StatusRejected:
		return s.Rejected
	default:
		return s.Pending
	}
}

// RealtimeColor returns the color for a push-connection state.
func (s *StyleConfig) RealtimeColor(state string) lipgloss.Color {
	switch state {
	case collection.RealtimeConnected:
		return s.Approved
	case collection.RealtimeConnecting, collection.RealtimeReconnecting:
		return s.Warning
	case collection.RealtimeClosed:
		return s.Error
	default:
		return s.TextSecondary
	}
}

// TitleStyle returns a title lipgloss style using this config
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 2)
}

// BannerStyle renders the error and notice line above the help text.
func (s *StyleConfig) BannerStyle(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(color).
		Bold(true).
		Padding(0, 2)
}
