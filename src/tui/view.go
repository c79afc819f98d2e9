package tui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// View manages the list of contact rows for the current page.
type View struct {
	list     list.Model
	items    []Item
	delegate *Delegate
}

// NewView creates a new contact list view
func NewView(styles *StyleConfig) View {
	delegate := NewDelegateWithStyles(styles)
	l := list.New([]list.Item{}, &delegate, 0, 0)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)

	return View{
		list:     l,
		items:    []Item{},
		delegate: &delegate,
	}
}

// Update handles list navigation
func (v View) Update(msg tea.Msg) (View, tea.Cmd) {
	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// SetSize sets the list dimensions
func (v *View) SetSize(width, height int) {
	v.list.SetSize(width, height)
}

// SetItems replaces the rows. The cursor stays on the same contact when it is still on the
// page, otherwise it is clamped.
func (v *View) SetItems(items []Item) {
	current, hadCurrent := v.GetSelectedItem()
	index := v.list.Index()

	v.items = items
	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = item
		if hadCurrent && item.ID() == current.ID() {
			index = i
		}
	}
	v.list.SetItems(listItems)

	if index >= len(items) {
		index = len(items) - 1
	}
	if index >= 0 {
		v.list.Select(index)
	}
}

// Items returns the current rows.
func (v View) Items() []Item {
	return v.items
}

// Select moves the cursor to index.
func (v *View) Select(index int) {
	v.list.Select(index)
}

// Index returns the cursor position.
func (v View) Index() int {
	return v.list.Index()
}

// GetSelectedItem returns the row under the cursor
func (v View) GetSelectedItem() (Item, bool) {
	if len(v.list.Items()) == 0 {
		return Item{}, false
	}
	item, ok := v.list.SelectedItem().(Item)
	return item, ok
}

// Render returns the string representation of the view
func (v View) Render() string {
	return v.list.View()
}
