package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"mwa-review/src/contracts"
)

// handleInputKey routes keys to the text input while searching or typing a reject reason.
// Search is applied live so the list narrows while typing.
func (m MainModel) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	mode := m.inputMode

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "enter":
		value := m.input.Value()
		m.exitInput()
		if mode == inputReason {
			return m.startBulk(contracts.BulkReject, CleanText(value))
		}
		m.applySnapshot(m.store().ApplySearch(value))
		return m, nil

	case "esc":
		m.exitInput()
		if mode == inputReason {
			m.message = "Cancelled"
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if mode == inputSearch {
		m.header.SetSearch(m.input.View(), true)
		m.applySnapshot(m.store().ApplySearch(m.input.Value()))
	}
	return m, cmd
}

func (m *MainModel) exitInput() {
	m.inputMode = inputNone
	m.input.Blur()
	m.header.SetSearch("", false)
	// the header height may change with the search line
	if m.ready {
		m.resizeComponents()
	}
}
