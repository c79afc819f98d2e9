// Package collection holds the dashboard's single source of truth: the full contact set, the
// query parameters (search, filter, sort, page), the selection and the load/error status.
//
// Every mutation runs under the store mutex, recomputes the derived views and publishes a new
// immutable Snapshot to listeners in mutation order. No component outside this package
// mutates the collection or the selection.
package collection

import (
	"context"
	"sync"
	"time"

	"mwa-review/src/contracts"
	"mwa-review/src/logger"
	"mwa-review/src/metrics"
)

// Source fetches contacts. contracts.ContactAPI satisfies it.
type Source interface {
	ListContacts(ctx context.Context, q contracts.ListQuery) (*contracts.ListResult, error)
}

// Realtime connection states as rendered on the snapshot. They mirror the channel states
// without importing the realtime package.
const (
	RealtimeOff          = "off"
	RealtimeConnecting   = "connecting"
	RealtimeConnected    = "connected"
	RealtimeReconnecting = "reconnecting"
	RealtimeClosed       = "closed"
)

// RealtimeStatus is the persistent push-connection status shown by the UI.
type RealtimeStatus struct {
	State string
	// Err is set once the channel gave up reconnecting.
	Err error
}

// Notice is the latest system notification pushed by the server.
type Notice struct {
	Level   string
	Title   string
	Message string
	At      time.Time
}

// Snapshot is an immutable view of the store after one mutation. Callers must treat the
// slices and maps as read-only.
type Snapshot struct {
	// Version increases with every mutation.
	Version uint64
	// Contacts is the full collection in insertion order.
	Contacts []contracts.Contact
	Query    QueryState
	Selected map[contracts.ContactID]struct{}
	Loading  bool
	Err      *OpError
	LoadedAt time.Time
	Realtime RealtimeStatus
	Notice   *Notice
	// Analytics holds the last analytics_updated payload.
	Analytics map[string]any

	Views
}

// IsSelected reports whether id is in the selection.
func (s *Snapshot) IsSelected(id contracts.ContactID) bool {
	_, ok := s.Selected[id]
	return ok
}

// SelectedIDs returns the selection in collection order.
func (s *Snapshot) SelectedIDs() []contracts.ContactID {
	ids := make([]contracts.ContactID, 0, len(s.Selected))
	for _, c := range s.Contacts {
		if _, ok := s.Selected[c.ID]; ok {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// LoadResult describes how one Load call ended.
type LoadResult struct {
	Token uint64
	// Superseded is true when a newer load was issued first; nothing was committed.
	Superseded bool
	// Count is the number of contacts committed.
	Count int
	// Err is the committed *OpError, or ErrSuperseded.
	Err error
}

// Config configures a Store.
type Config struct {
	Source Source
	// PageSize is the initial dashboard page size.
	PageSize int
	// LoadPageSize is the page size used to walk the source during Load.
	LoadPageSize int
	Logger       logger.Logger
	Metrics      *metrics.Metrics
	// Now is overridable for tests.
	Now func() time.Time
}

// Listener receives every post-mutation snapshot. Listeners run synchronously on the
// mutating goroutine and must not call mutating Store methods.
type Listener func(*Snapshot)

type listenerEntry struct {
	id uint64
	fn Listener
}

// Store is the contact collection store.
type Store struct {
	source       Source
	loadPageSize int
	log          logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time

	// notifyMu serialises whole mutations, including listener delivery, so listeners observe
	// snapshots in mutation order.
	notifyMu sync.Mutex

	mu sync.Mutex
	// ordered is the collection in insertion order and index maps ids into it. Once a
	// snapshot references ordered it is shared and copied before the next write.
	ordered   []contracts.Contact
	index     map[contracts.ContactID]int
	shared    bool
	query     QueryState
	selected  map[contracts.ContactID]struct{}
	loading   bool
	err       *OpError
	loadedAt  time.Time
	realtime  RealtimeStatus
	notice    *Notice
	analytics map[string]any
	token     uint64
	version   uint64
	snap      *Snapshot

	listeners    []listenerEntry
	nextListener uint64
}

// NewStore creates an empty store.
func NewStore(cfg Config) *Store {
	if cfg.LoadPageSize <= 0 {
		cfg.LoadPageSize = 200
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Store{
		source:       cfg.Source,
		loadPageSize: cfg.LoadPageSize,
		log:          logger.OrSilent(cfg.Logger),
		metrics:      cfg.Metrics,
		now:          cfg.Now,
		index:        make(map[contracts.ContactID]int),
		query:        NewQueryState(cfg.PageSize),
		selected:     make(map[contracts.ContactID]struct{}),
		realtime:     RealtimeStatus{State: RealtimeOff},
	}
	s.recomputeLocked()
	return s
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe registers fn for every future snapshot. The returned func removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Contact returns the contact with the given id.
func (s *Store) Contact(id contracts.ContactID) (contracts.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return contracts.Contact{}, false
	}
	return s.ordered[i], true
}

// mutate applies fn under the lock. When fn reports a change the views are recomputed and
// listeners notified.
func (s *Store) mutate(fn func() bool) *Snapshot {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if !fn() {
		snap := s.snap
		s.mu.Unlock()
		return snap
	}
	s.recomputeLocked()
	snap := s.snap
	listeners := append([]listenerEntry(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn(snap)
	}
	return snap
}

func (s *Store) recomputeLocked() {
	if s.ordered == nil {
		s.ordered = []contracts.Contact{}
	}
	s.shared = true
	s.metrics.SetCollectionSize(len(s.ordered))
	views := Derive(s.ordered, s.query, s.selected)
	s.query.Page = views.Page
	s.version++

	selected := make(map[contracts.ContactID]struct{}, len(s.selected))
	for id := range s.selected {
		selected[id] = struct{}{}
	}
	s.snap = &Snapshot{
		Version:   s.version,
		Contacts:  s.ordered,
		Query:     s.query.clone(),
		Selected:  selected,
		Loading:   s.loading,
		Err:       s.err,
		LoadedAt:  s.loadedAt,
		Realtime:  s.realtime,
		Notice:    s.notice,
		Analytics: s.analytics,
		Views:     views,
	}
}

// ownLocked makes ordered safe to write in place.
func (s *Store) ownLocked() {
	if !s.shared {
		return
	}
	s.ordered = append(make([]contracts.Contact, 0, len(s.ordered)+1), s.ordered...)
	s.shared = false
}

// Load fetches every contact from the source and replaces the collection. Only the most
// recently issued load commits; older ones return Superseded. On failure the previous
// collection is kept and the error is recorded on the snapshot.
func (s *Store) Load(ctx context.Context) LoadResult {
	var token uint64
	s.mutate(func() bool {
		s.token++
		token = s.token
		s.loading = true
		s.err = nil
		return true
	})

	start := s.now()
	contacts, err := s.fetchAll(ctx)
	elapsed := s.now().Sub(start)

	result := LoadResult{Token: token}
	s.mutate(func() bool {
		if token != s.token {
			result.Superseded = true
			result.Err = ErrSuperseded
			return false
		}
		s.loading = false
		if err != nil {
			s.err = NewOpError("load", err)
			result.Err = s.err
			return true
		}
		s.replaceLocked(contacts)
		s.loadedAt = s.now()
		result.Count = len(contacts)
		return true
	})

	switch {
	case result.Superseded:
		s.metrics.ObserveLoad("superseded", elapsed)
		s.log.Debug("discarding superseded load", "token", token)
	case result.Err != nil:
		s.metrics.ObserveLoad("error", elapsed)
		s.log.Warn("contact load failed", "token", token, "error", err)
	default:
		s.metrics.ObserveLoad("committed", elapsed)
		s.log.Info("contacts loaded", "count", result.Count, "duration", elapsed)
	}
	return result
}

func (s *Store) fetchAll(ctx context.Context) ([]contracts.Contact, error) {
	if s.source == nil {
		return nil, nil
	}
	var all []contracts.Contact
	for page := 1; ; page++ {
		res, err := s.source.ListContacts(ctx, contracts.ListQuery{Page: page, PageSize: s.loadPageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, res.Contacts...)
		if len(res.Contacts) == 0 || len(res.Contacts) < s.loadPageSize || (res.Total > 0 && len(all) >= res.Total) {
			return all, nil
		}
	}
}

func (s *Store) replaceLocked(contacts []contracts.Contact) {
	s.ordered = make([]contracts.Contact, 0, len(contacts))
	s.index = make(map[contracts.ContactID]int, len(contacts))
	s.shared = false
	for _, c := range contacts {
		if c.ID == "" {
			continue
		}
		s.upsertLocked(c)
	}
	s.selected = make(map[contracts.ContactID]struct{})
}

// upsertLocked replaces the contact in place, keeping its position, or appends it.
func (s *Store) upsertLocked(c contracts.Contact) {
	s.ownLocked()
	if i, ok := s.index[c.ID]; ok {
		s.ordered[i] = c
		return
	}
	s.index[c.ID] = len(s.ordered)
	s.ordered = append(s.ordered, c)
}

func (s *Store) removeLocked(id contracts.ContactID) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.ownLocked()
	copy(s.ordered[i:], s.ordered[i+1:])
	s.ordered = s.ordered[:len(s.ordered)-1]
	delete(s.index, id)
	for j := i; j < len(s.ordered); j++ {
		s.index[s.ordered[j].ID] = j
	}
	delete(s.selected, id)
	return true
}

// ApplyFilter merges patch into the filter and returns to page 1.
func (s *Store) ApplyFilter(patch FilterPatch) *Snapshot {
	return s.mutate(func() bool {
		s.query.Filter = s.query.Filter.Merge(patch)
		s.query.Page = 1
		return true
	})
}

// ApplySearch sets the free-text term and returns to page 1.
func (s *Store) ApplySearch(term string) *Snapshot {
	return s.mutate(func() bool {
		s.query.Search = term
		s.query.Page = 1
		return true
	})
}

// SetSort changes the sort field and order. The page is kept (and clamped).
func (s *Store) SetSort(field SortField, order SortOrder) *Snapshot {
	return s.mutate(func() bool {
		if !field.Valid() {
			return false
		}
		if order != Descending {
			order = Ascending
		}
		s.query.Sort = Sort{Field: field, Order: order}
		return true
	})
}

// GoToPage moves to page n. Pages outside [1, TotalPages] are ignored.
func (s *Store) GoToPage(n int) *Snapshot {
	return s.mutate(func() bool {
		if n < 1 || n > s.snap.TotalPages || n == s.query.Page {
			return false
		}
		s.query.Page = n
		return true
	})
}

// SetPageSize changes the page size and returns to page 1. Non-positive sizes are ignored.
func (s *Store) SetPageSize(n int) *Snapshot {
	return s.mutate(func() bool {
		if n <= 0 {
			return false
		}
		s.query.PageSize = n
		s.query.Page = 1
		return true
	})
}

// ClearFilters empties the filter and the search term and returns to page 1.
func (s *Store) ClearFilters() *Snapshot {
	return s.mutate(func() bool {
		s.query.Filter = Filter{}
		s.query.Search = ""
		s.query.Page = 1
		return true
	})
}

// ToggleSelect flips the selection of id. Ids not in the collection are ignored.
func (s *Store) ToggleSelect(id contracts.ContactID) *Snapshot {
	return s.mutate(func() bool {
		if _, ok := s.index[id]; !ok {
			return false
		}
		if _, ok := s.selected[id]; ok {
			delete(s.selected, id)
		} else {
			s.selected[id] = struct{}{}
		}
		return true
	})
}

// ToggleSelectAllVisible selects every contact in the filtered view, or deselects them all
// when they are already all selected. Selected contacts outside the filter are untouched.
func (s *Store) ToggleSelectAllVisible() *Snapshot {
	return s.mutate(func() bool {
		filtered := s.snap.Filtered
		if len(filtered) == 0 {
			return false
		}
		if s.snap.AllVisibleSelected {
			for _, c := range filtered {
				delete(s.selected, c.ID)
			}
		} else {
			for _, c := range filtered {
				s.selected[c.ID] = struct{}{}
			}
		}
		return true
	})
}

// ClearSelection empties the selection.
func (s *Store) ClearSelection() *Snapshot {
	return s.mutate(func() bool {
		if len(s.selected) == 0 {
			return false
		}
		s.selected = make(map[contracts.ContactID]struct{})
		return true
	})
}

// ApplyRemoteMutation applies one pushed event. Contact events are merged onto the stored
// contact (approvals and rejections touch only the status, updates only the fields they
// carry) or inserted when the id is new. Deletions remove the contact and its selection.
// Analytics and notifications are recorded as-is.
// It reports whether the event changed the store.
func (s *Store) ApplyRemoteMutation(ev contracts.Event) bool {
	applied := false
	s.mutate(func() bool {
		switch e := ev.(type) {
		case contracts.ContactEvent:
			if e.Contact.ID == "" {
				s.log.Debug("ignoring contact event without id", "type", e.Kind)
				return false
			}
			applied = s.applyContactEventLocked(e)
		case contracts.ContactDeletedEvent:
			applied = s.removeLocked(e.ID)
		case contracts.AnalyticsEvent:
			s.analytics = e.Metrics
			applied = true
		case contracts.NotificationEvent:
			s.notice = &Notice{Level: e.Level, Title: e.Title, Message: e.Message, At: s.now()}
			applied = true
		default:
			s.log.Debug("ignoring unsupported event", "event", ev)
		}
		return applied
	})
	return applied
}

func (s *Store) applyContactEventLocked(e contracts.ContactEvent) bool {
	i, ok := s.index[e.Contact.ID]
	if !ok {
		if e.Kind != contracts.MessageContactCreated && !e.HasDetails() {
			s.log.Debug("ignoring partial event for unknown contact", "type", e.Kind, "id", e.Contact.ID)
			return false
		}
		s.upsertLocked(e.Contact.Clone())
		return true
	}
	merged, err := e.MergeInto(s.ordered[i])
	if err != nil {
		s.log.Warn("failed to merge contact event", "type", e.Kind, "id", e.Contact.ID, "error", err)
		return false
	}
	s.upsertLocked(merged)
	return true
}

// ApplyBulkResult writes the effect of a bulk action on the succeeded ids: delete removes
// them, verify approves and reject rejects them in place. Export leaves the store untouched.
func (s *Store) ApplyBulkResult(action contracts.BulkAction, succeeded []contracts.ContactID, reason string) *Snapshot {
	return s.mutate(func() bool {
		changed := false
		for _, id := range succeeded {
			switch action {
			case contracts.BulkDelete:
				if s.removeLocked(id) {
					changed = true
				}
			case contracts.BulkVerify, contracts.BulkReject:
				i, ok := s.index[id]
				if !ok {
					continue
				}
				c := s.ordered[i]
				if action == contracts.BulkVerify {
					c.Status = contracts.StatusApproved
					c.RejectionReason = ""
				} else {
					c.Status = contracts.StatusRejected
					c.RejectionReason = reason
				}
				s.upsertLocked(c)
				changed = true
			}
		}
		return changed
	})
}

// SetError records a failed operation. A nil err clears the error.
func (s *Store) SetError(op string, err error) *Snapshot {
	return s.mutate(func() bool {
		if err == nil {
			if s.err == nil {
				return false
			}
			s.err = nil
			return true
		}
		s.err = NewOpError(op, err)
		return true
	})
}

// ClearError clears the surfaced error.
func (s *Store) ClearError() *Snapshot {
	return s.SetError("", nil)
}

// SetRealtimeStatus records the push-connection state.
func (s *Store) SetRealtimeStatus(state string, err error) *Snapshot {
	return s.mutate(func() bool {
		if s.realtime.State == state && s.realtime.Err == err {
			return false
		}
		s.realtime = RealtimeStatus{State: state, Err: err}
		return true
	})
}

// DismissNotice clears the current system notification.
func (s *Store) DismissNotice() *Snapshot {
	return s.mutate(func() bool {
		if s.notice == nil {
			return false
		}
		s.notice = nil
		return true
	})
}
