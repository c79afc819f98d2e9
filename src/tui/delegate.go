package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mwa-review/src/contracts"
)

const (
	markWidth       = 3
	agencyWidth     = 12
	scoreWidth      = 3
	statusWidth     = 8
	ageWidth        = 4
	minNameWidth    = 8
	minCompanyWidth = 6

	// separatorWidth is the width of " │ " between columns.
	separatorWidth = 3
	fixedWidth     = markWidth + agencyWidth + 2*scoreWidth + statusWidth + ageWidth + 6*separatorWidth
)

// agencyLabels are the short column labels for agency types.
var agencyLabels = map[contracts.AgencyType]string{
	contracts.AgencyRealEstate:         "real estate",
	contracts.AgencyPropertyManagement: "prop. mgmt",
	contracts.AgencyRelocation:         "relocation",
	contracts.AgencyCorporateHousing:   "corp. housing",
	contracts.AgencyPrivateLandlord:    "landlord",
	contracts.AgencyHousingCooperative: "cooperative",
	contracts.AgencyOther:              "other",
}

// AgencyLabel returns a short label for an agency type.
func AgencyLabel(a contracts.AgencyType) string {
	if label, ok := agencyLabels[a]; ok {
		return label
	}
	if a == "" {
		return "-"
	}
	return string(a)
}

// Delegate renders contacts as table rows.
type Delegate struct {
	styles *StyleConfig
	// now is overridable for tests.
	now func() time.Time
}

// NewDelegate creates a new contact table delegate with default styles
func NewDelegate() Delegate {
	return NewDelegateWithStyles(DefaultStyles())
}

// NewDelegateWithStyles creates a new delegate with custom styles
func NewDelegateWithStyles(styles *StyleConfig) Delegate {
	return Delegate{styles: styles, now: time.Now}
}

// Height returns the height of a list item
func (d Delegate) Height() int {
	return 1
}

// Spacing returns spacing between items
func (d Delegate) Spacing() int {
	return 0
}

// Update handles item updates
func (d Delegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// columnWidths splits what the fixed columns leave of a total-wide row between name and
// company. total is the list content width; the panel border is already excluded. The
// company column is dropped when it would get fewer than minCompanyWidth cells.
func columnWidths(total int) (name, company int) {
	avail := total - fixedWidth
	if avail < minNameWidth+separatorWidth+minCompanyWidth {
		return max(avail, minNameWidth), 0
	}
	avail -= separatorWidth
	company = max(avail*45/100, minCompanyWidth)
	return avail - company, company
}

// Render renders a list item
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(Item)
	if !ok {
		return
	}
	c := entry.Contact
	isSelected := index == m.Index()

	mark := "[ ]"
	if entry.Selected {
		mark = "[x]"
	}

	nameWidth, companyWidth := columnWidths(m.Width())
	cols := []string{
		mark,
		TruncateAndPad(CleanText(c.DisplayName()), nameWidth, true),
	}
	if companyWidth > 0 {
		cols = append(cols, TruncateAndPad(CleanText(c.Company), companyWidth, true))
	}
	cols = append(cols,
		TruncateAndPad(AgencyLabel(c.AgencyType), agencyWidth, true),
		FormatScore(c.ConfidenceScore),
		FormatScore(c.QualityScore),
		TruncateAndPad(string(c.Status), statusWidth, false),
		fmt.Sprintf("%*s", ageWidth, FormatAge(c.CreatedAt, d.now())),
	)

	line := ""
	for i, col := range cols {
		if i > 0 {
			line += " │ "
		}
		line += col
	}

	style := lipgloss.NewStyle().Foreground(d.styles.TextSecondary)
	if entry.Selected {
		style = style.Foreground(d.styles.TextPrimary)
	}
	if isSelected {
		style = style.Bold(true).Foreground(d.styles.PrimaryBlue).Background(d.styles.SelectedColor)
	}

	fmt.Fprint(w, style.Render(line))
}
