// Package tui provides the terminal dashboard for reviewing discovered contacts.
// The collection store owns all state; the model renders its snapshots and turns key presses
// into store operations, loads and bulk actions.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"mwa-review/src/bulk"
	"mwa-review/src/collection"
	"mwa-review/src/contracts"
)

// Backend is what the dashboard drives. *session.Session satisfies it.
type Backend interface {
	Store() *collection.Store
	API() contracts.ContactAPI
	Reload()
	RunBulk(ctx context.Context, action contracts.BulkAction, opts bulk.Options) (bulk.Report, error)
}

// Status is the coarse dashboard state.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
)

type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputReason
)

// SnapshotMsg delivers a store snapshot published outside the update loop.
type SnapshotMsg struct {
	Snapshot *collection.Snapshot
}

// ScoringMsg carries a fetched scoring breakdown.
type ScoringMsg struct {
	ID     contracts.ContactID
	Result *contracts.ScoringResult
	Err    error
}

// BulkDoneMsg reports a finished bulk action.
type BulkDoneMsg struct {
	Report bulk.Report
	Err    error
}

var (
	confidenceSteps = []float64{-1, 0.5, 0.7, 0.9}
	statusSteps     = []contracts.ApprovalStatus{"", contracts.StatusPending, contracts.StatusApproved, contracts.StatusRejected}
)

const (
	pageSizeStep = 10
	minPageSize  = 5
)

// MainModel is the dashboard model.
type MainModel struct {
	backend Backend
	ctx     context.Context
	updates <-chan *collection.Snapshot

	snap   *collection.Snapshot
	items  []Item
	status Status

	header         Header
	listView       View
	detailViewport viewport.Model
	progress       ProgressModel
	input          textinput.Model
	inputMode      inputMode
	// confirm is the action awaiting a y/n answer.
	confirm contracts.BulkAction

	scoring     map[contracts.ContactID]*contracts.ScoringResult
	scoringErr  map[contracts.ContactID]error
	bulkRunning bool
	message     string

	styles        *StyleConfig
	width         int
	height        int
	ready         bool
	detailFocused bool
}

// NewMainModel creates the dashboard over backend. updates may be nil when snapshots are
// only fed through SnapshotMsg.
func NewMainModel(ctx context.Context, backend Backend, updates <-chan *collection.Snapshot) MainModel {
	styles := DefaultStyles()

	input := textinput.New()
	input.Prompt = "Search: "
	input.CharLimit = 120

	m := MainModel{
		backend:        backend,
		ctx:            ctx,
		updates:        updates,
		header:         NewHeaderWithStyles("MWA Contact Review", styles),
		listView:       NewView(styles),
		detailViewport: viewport.New(0, 0),
		progress:       NewProgressModel(),
		input:          input,
		scoring:        make(map[contracts.ContactID]*contracts.ScoringResult),
		scoringErr:     make(map[contracts.ContactID]error),
		styles:         styles,
	}
	m.applySnapshot(backend.Store().Snapshot())
	return m
}

// Init starts the spinner and the snapshot subscription.
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(m.progress.Tick(), waitForSnapshot(m.updates))
}

// waitForSnapshot blocks until the next published snapshot.
func waitForSnapshot(updates <-chan *collection.Snapshot) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

// Update handles messages and updates the model state.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case SnapshotMsg:
		// a key press may already have applied a newer snapshot
		if m.snap != nil && msg.Snapshot.Version < m.snap.Version {
			return m, waitForSnapshot(m.updates)
		}
		wasAnimating := m.progress.Animating()
		m.applySnapshot(msg.Snapshot)
		if !wasAnimating && m.progress.Animating() {
			return m, tea.Batch(m.progress.Tick(), waitForSnapshot(m.updates))
		}
		return m, waitForSnapshot(m.updates)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd

	case ScoringMsg:
		if msg.Err != nil {
			m.scoringErr[msg.ID] = msg.Err
		} else {
			m.scoring[msg.ID] = msg.Result
			delete(m.scoringErr, msg.ID)
		}
		m.refreshDetail()
		return m, nil

	case BulkDoneMsg:
		m.bulkRunning = false
		if msg.Err != nil {
			m.message = msg.Err.Error()
		} else {
			m.message = msg.Report.Summary()
		}
		m.applySnapshot(m.store().Snapshot())
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.inputMode != inputNone:
			return m.handleInputKey(msg)
		case m.confirm != "":
			return m.handleConfirmKey(msg)
		case m.detailFocused:
			return m.handleDetailKey(msg)
		default:
			return m.handleListKey(msg)
		}
	}

	return m, nil
}

func (m MainModel) store() *collection.Store {
	return m.backend.Store()
}

// applySnapshot re-renders from snap. It is the only place that copies store state into
// the model.
func (m *MainModel) applySnapshot(snap *collection.Snapshot) {
	if snap == nil {
		return
	}
	m.snap = snap
	m.items = itemsFromSnapshot(snap.Paginated, snap.Selected)
	m.listView.SetItems(m.items)
	m.header.SetSnapshot(snap)

	switch {
	case snap.Loading && snap.LoadedAt.IsZero():
		m.status = StatusLoading
		m.progress, _ = m.progress.Update(ProgressMsg{Stage: "Loading contacts"})
	case snap.LoadedAt.IsZero() && snap.Err != nil:
		m.status = StatusLoading
		m.progress, _ = m.progress.Update(ProgressMsg{Stage: "Loading contacts", Err: snap.Err})
	case snap.LoadedAt.IsZero():
		m.status = StatusLoading
	default:
		m.status = StatusReady
		m.progress, _ = m.progress.Update(ProgressMsg{Stage: StageComplete})
	}

	m.refreshDetail()
}

func (m MainModel) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.store()
	snap := m.snap

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "/":
		m.inputMode = inputSearch
		m.input.Prompt = "Search: "
		m.input.Placeholder = "name, email, phone or company"
		m.input.SetValue(snap.Query.Search)
		m.input.CursorEnd()
		m.header.SetSearch(m.input.View(), true)
		return m, m.input.Focus()

	case "esc":
		switch {
		case snap.Err != nil:
			m.applySnapshot(st.ClearError())
		case snap.Notice != nil:
			m.applySnapshot(st.DismissNotice())
		case m.message != "":
			m.message = ""
		case snap.Query.Search != "":
			m.applySnapshot(st.ApplySearch(""))
		}

	case "n", "right", "l":
		m.applySnapshot(st.GoToPage(snap.Page + 1))
	case "p", "left", "h":
		m.applySnapshot(st.GoToPage(snap.Page - 1))

	case "a":
		next := nextAgency(snap.Query.Filter.AgencyType)
		m.applySnapshot(st.ApplyFilter(collection.FilterPatch{AgencyType: &next}))
	case "s":
		next := nextStatus(snap.Query.Filter.Status)
		m.applySnapshot(st.ApplyFilter(collection.FilterPatch{Status: &next}))
	case "c":
		next := nextConfidence(snap.Query.Filter.MinConfidence)
		m.applySnapshot(st.ApplyFilter(collection.FilterPatch{MinConfidence: &next}))
	case "C":
		m.applySnapshot(st.ClearFilters())

	case "o":
		m.applySnapshot(st.SetSort(nextSortField(snap.Query.Sort.Field), snap.Query.Sort.Order))
	case "O":
		order := collection.Ascending
		if snap.Query.Sort.Order == collection.Ascending {
			order = collection.Descending
		}
		m.applySnapshot(st.SetSort(snap.Query.Sort.Field, order))

	case "+", "=":
		m.applySnapshot(st.SetPageSize(snap.Query.PageSize + pageSizeStep))
	case "-":
		size := snap.Query.PageSize - pageSizeStep
		if size < minPageSize {
			size = minPageSize
		}
		m.applySnapshot(st.SetPageSize(size))

	case " ", "x":
		if item, ok := m.listView.GetSelectedItem(); ok {
			m.applySnapshot(st.ToggleSelect(item.ID()))
		}
	case "A":
		m.applySnapshot(st.ToggleSelectAllVisible())
	case "X":
		m.applySnapshot(st.ClearSelection())

	case "r":
		m.message = "Reloading..."
		m.backend.Reload()

	case "enter":
		item, ok := m.listView.GetSelectedItem()
		if !ok {
			return m, nil
		}
		m.detailFocused = true
		m.detailViewport.GotoTop()
		return m, m.fetchScoring(item.ID())

	case "v":
		return m.startBulk(contracts.BulkVerify, "")
	case "e":
		return m.startBulk(contracts.BulkExport, "")
	case "R":
		if !m.canRunBulk() {
			return m, nil
		}
		m.inputMode = inputReason
		m.input.Prompt = "Reject reason: "
		m.input.Placeholder = "optional"
		m.input.SetValue("")
		return m, m.input.Focus()
	case "D":
		if !m.canRunBulk() {
			return m, nil
		}
		m.confirm = contracts.BulkDelete

	default:
		var cmd tea.Cmd
		m.listView, cmd = m.listView.Update(msg)
		m.refreshDetail()
		return m, cmd
	}

	return m, nil
}

func (m MainModel) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "enter":
		m.detailFocused = false
		return m, nil
	}
	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m MainModel) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.confirm
	m.confirm = ""
	switch msg.String() {
	case "y", "Y":
		return m.startBulk(action, "")
	case "ctrl+c":
		return m, tea.Quit
	}
	m.message = "Cancelled"
	return m, nil
}

// canRunBulk reports whether a bulk action may start, setting the status message if not.
func (m *MainModel) canRunBulk() bool {
	switch {
	case m.bulkRunning:
		m.message = "A bulk action is already running"
		return false
	case m.snap.SelectedCount == 0:
		m.message = "Nothing selected. Use space to select contacts"
		return false
	}
	return true
}

func (m MainModel) startBulk(action contracts.BulkAction, reason string) (tea.Model, tea.Cmd) {
	if !m.canRunBulk() {
		return m, nil
	}
	m.bulkRunning = true
	m.message = fmt.Sprintf("Running %s on %d contacts...", action, m.snap.SelectedCount)

	backend, ctx := m.backend, m.ctx
	return m, func() tea.Msg {
		report, err := backend.RunBulk(ctx, action, bulk.Options{Reason: reason})
		return BulkDoneMsg{Report: report, Err: err}
	}
}

func (m MainModel) fetchScoring(id contracts.ContactID) tea.Cmd {
	if _, ok := m.scoring[id]; ok {
		return nil
	}
	api, ctx := m.backend.API(), m.ctx
	return func() tea.Msg {
		res, err := api.GetScoring(ctx, id)
		return ScoringMsg{ID: id, Result: res, Err: err}
	}
}

// Selected returns the contact under the cursor.
func (m MainModel) Selected() (contracts.Contact, bool) {
	item, ok := m.listView.GetSelectedItem()
	return item.Contact, ok
}

// Snapshot returns the snapshot currently rendered.
func (m MainModel) Snapshot() *collection.Snapshot {
	return m.snap
}

func nextAgency(cur contracts.AgencyType) contracts.AgencyType {
	if cur == "" {
		return contracts.AgencyTypes[0]
	}
	for i, a := range contracts.AgencyTypes {
		if a == cur && i+1 < len(contracts.AgencyTypes) {
			return contracts.AgencyTypes[i+1]
		}
	}
	return ""
}

func nextStatus(cur contracts.ApprovalStatus) contracts.ApprovalStatus {
	for i, s := range statusSteps {
		if s == cur {
			return statusSteps[(i+1)%len(statusSteps)]
		}
	}
	return ""
}

// nextConfidence returns the next threshold; -1 clears the filter.
func nextConfidence(cur *float64) float64 {
	if cur == nil {
		return confidenceSteps[1]
	}
	for i, v := range confidenceSteps {
		if v == *cur {
			return confidenceSteps[(i+1)%len(confidenceSteps)]
		}
	}
	return -1
}

func nextSortField(cur collection.SortField) collection.SortField {
	for i, f := range collection.SortFields {
		if f == cur {
			return collection.SortFields[(i+1)%len(collection.SortFields)]
		}
	}
	return collection.SortFields[0]
}
