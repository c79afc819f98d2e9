package tui

import (
	"mwa-review/src/contracts"
	"mwa-review/src/sanitize"
)

// Item is one contact row in the dashboard list. It implements bubbles/list.Item.
type Item struct {
	Contact  contracts.Contact
	Selected bool
}

// FilterValue is the value used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Contact.Name }

// Title returns the primary text for the item (required by list.Item).
func (i Item) Title() string { return sanitize.Line(i.Contact.DisplayName()) }

// Description returns the secondary text for the item (required by list.Item).
func (i Item) Description() string { return sanitize.Line(i.Contact.Company) }

// ID is the contact id.
func (i Item) ID() contracts.ContactID { return i.Contact.ID }

// itemsFromSnapshot builds the rows of the current page.
func itemsFromSnapshot(page []contracts.Contact, selected map[contracts.ContactID]struct{}) []Item {
	items := make([]Item, len(page))
	for i, c := range page {
		_, sel := selected[c.ID]
		items[i] = Item{Contact: c, Selected: sel}
	}
	return items
}
