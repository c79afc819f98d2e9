package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Block logo for the loading screen
var mwaLogo = []string{
	"██▄  ▄██ ██     ██  ▄████▄ ",
	"██ ▀▀ ██ ██  ▄  ██ ██    ██",
	"██    ██ ██ ███ ██ ████████",
	"██    ██  ███ ███  ██    ██",
}

// Gradient colors from light (top) to dark (bottom)
var logoGradientColors = []string{
	"#5DADE2",
	"#3498DB",
	"#2E86C1",
	"#21618C",
}

// StageComplete ends the loading animation.
const StageComplete = "complete"

// ProgressMsg moves the loading screen to a new stage.
type ProgressMsg struct {
	Stage string
	// Err replaces the spinner with a failure line.
	Err error
}

// ProgressModel is the loading screen shown until the first load finishes.
type ProgressModel struct {
	spinner spinner.Model
	stage   string
	done    bool
	err     error
}

func NewProgressModel() ProgressModel {
	return ProgressModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))),
		),
	}
}

// Tick starts the spinner animation.
func (m ProgressModel) Tick() tea.Cmd {
	return m.spinner.Tick
}

// Animating reports whether the spinner is still running.
func (m ProgressModel) Animating() bool {
	return !m.done && m.err == nil
}

func (m ProgressModel) Update(msg tea.Msg) (ProgressModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.stage = msg.Stage
		m.err = msg.Err
		m.done = msg.Stage == StageComplete
	case spinner.TickMsg:
		// a stopped spinner drops its tick so the program goes idle
		if !m.Animating() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ProgressModel) View() string {
	logoLines := make([]string, len(mwaLogo))
	for i, line := range mwaLogo {
		logoLines[i] = lipgloss.NewStyle().
			Foreground(lipgloss.Color(logoGradientColors[i%len(logoGradientColors)])).
			Bold(true).
			Render(line)
	}
	logo := strings.Join(logoLines, "\n")

	var status string
	switch {
	case m.err != nil:
		status = lipgloss.NewStyle().Foreground(lipgloss.Color("#EA4335")).
			Render(fmt.Sprintf("✗ %v. Press (r) to retry", m.err))
	case m.done:
		status = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).
			Render("✓ Loaded. No contacts yet. Press (r) to refresh")
	case m.stage != "":
		status = fmt.Sprintf("%s %s...", m.spinner.View(), m.stage)
	default:
		status = fmt.Sprintf("%s Loading...", m.spinner.View())
	}
	return lipgloss.JoinVertical(lipgloss.Center, logo, "", status)
}
