package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mwa-review/src/collection"
)

// Header represents the top status bar component.
type Header struct {
	title      string
	realtime   collection.RealtimeStatus
	total      int
	filtered   int
	selected   int
	page       int
	totalPages int
	query      collection.QueryState
	searchView string
	searchMode bool
	styles     *StyleConfig
}

// NewHeader creates a new header with default styles
func NewHeader(title string) Header {
	return NewHeaderWithStyles(title, DefaultStyles())
}

// NewHeaderWithStyles creates a new header with custom styles
func NewHeaderWithStyles(title string, styles *StyleConfig) Header {
	return Header{
		title:      title,
		realtime:   collection.RealtimeStatus{State: collection.RealtimeOff},
		page:       1,
		totalPages: 1,
		styles:     styles,
	}
}

// SetSnapshot copies the counters, query and realtime status from snap.
func (h *Header) SetSnapshot(snap *collection.Snapshot) {
	h.realtime = snap.Realtime
	h.total = len(snap.Contacts)
	h.filtered = len(snap.Filtered)
	h.selected = snap.SelectedCount
	h.page = snap.Page
	h.totalPages = snap.TotalPages
	h.query = snap.Query
}

// SetSearch updates the search state. view is the rendered text input while searching.
func (h *Header) SetSearch(view string, mode bool) {
	h.searchView = view
	h.searchMode = mode
}

// FilterSummary describes the active structured filters, or "all".
func FilterSummary(f collection.Filter) string {
	var parts []string
	if f.AgencyType != "" {
		parts = append(parts, AgencyLabel(f.AgencyType))
	}
	if f.Status != "" {
		parts = append(parts, string(f.Status))
	}
	if f.MinConfidence != nil {
		parts = append(parts, fmt.Sprintf("conf≥%.1f", *f.MinConfidence))
	}
	if f.MinQuality != nil {
		parts = append(parts, fmt.Sprintf("qual≥%.1f", *f.MinQuality))
	}
	if f.LeadSource != "" {
		parts = append(parts, "source:"+f.LeadSource)
	}
	if f.MarketArea != "" {
		parts = append(parts, "area:"+f.MarketArea)
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, ", ")
}

// realtimeLabel renders the push status, including the reason once the channel gave up.
func (h Header) realtimeLabel() string {
	label := "● " + h.realtime.State
	if h.realtime.State == collection.RealtimeClosed && h.realtime.Err != nil {
		label = "● offline"
	}
	return label
}

// Render renders the header
func (h Header) Render(width int) string {
	titleStyle := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 2)
	title := titleStyle.Render(fmt.Sprintf("📇 %s", h.title))

	live := lipgloss.NewStyle().
		Foreground(h.styles.RealtimeColor(h.realtime.State)).
		Padding(0, 1).
		Render(h.realtimeLabel())

	counts := lipgloss.NewStyle().
		Foreground(h.styles.TextPrimary).
		Padding(0, 1).
		Render(fmt.Sprintf("%d/%d shown • %d selected • page %d/%d",
			h.filtered, h.total, h.selected, h.page, h.totalPages))

	topLine := lipgloss.JoinHorizontal(lipgloss.Left, title, live, counts)

	filterStyle := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Padding(0, 2)
	filter := filterStyle.Render(fmt.Sprintf("Filter: %s", FilterSummary(h.query.Filter)))

	sortLabel := fmt.Sprintf("↕ Sort: %s %s", h.query.Sort.Field, h.query.Sort.Order)
	sort := filterStyle.Render(sortLabel)

	var searchText string
	switch {
	case h.searchMode:
		searchText = "🔍 " + h.searchView
	case h.query.Search != "":
		searchText = fmt.Sprintf("🔍 Search: %s", h.query.Search)
	default:
		searchText = "🔍 [/] to search"
	}
	searchStyle := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Padding(0, 2)
	if h.searchMode {
		searchStyle = searchStyle.Foreground(h.styles.PrimaryBlue)
	}
	search := searchStyle.Render(searchText)

	bottomLine := lipgloss.JoinHorizontal(lipgloss.Left, filter, sort, search)

	headerStyle := lipgloss.NewStyle().
		Background(h.styles.DarkBackground).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Width(width).
		MaxWidth(width)

	return headerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, topLine, bottomLine))
}
