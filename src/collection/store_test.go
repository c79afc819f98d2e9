package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mwa-review/src/contracts"
)

// fakeSource serves a fixed collection, optionally blocking each call until released.
type fakeSource struct {
	mu       sync.Mutex
	contacts []contracts.Contact
	err      error
	calls    int
	gates    []chan struct{}
	// noTotal leaves ListResult.Total unset, as some backends do.
	noTotal bool
}

func (f *fakeSource) ListContacts(ctx context.Context, q contracts.ListQuery) (*contracts.ListResult, error) {
	f.mu.Lock()
	f.calls++
	var gate chan struct{}
	if len(f.gates) > 0 {
		gate = f.gates[0]
		f.gates = f.gates[1:]
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	contacts, err, noTotal := f.contacts, f.err, f.noTotal
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	start := (q.Page - 1) * q.PageSize
	if start > len(contacts) {
		start = len(contacts)
	}
	end := start + q.PageSize
	if end > len(contacts) {
		end = len(contacts)
	}
	res := &contracts.ListResult{Contacts: contacts[start:end], Total: len(contacts)}
	if noTotal {
		res.Total = 0
	}
	return res, nil
}

func makeContacts(n int) []contracts.Contact {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	out := make([]contracts.Contact, n)
	for i := range out {
		status := contracts.StatusPending
		if i%3 == 0 {
			status = contracts.StatusApproved
		}
		out[i] = contracts.Contact{
			ID:              contracts.ContactID(fmt.Sprintf("c-%02d", i+1)),
			Name:            fmt.Sprintf("Contact %02d", i+1),
			Email:           fmt.Sprintf("contact%02d@example.com", i+1),
			Company:         fmt.Sprintf("Agency %d", i%4),
			AgencyType:      contracts.AgencyTypes[i%len(contracts.AgencyTypes)],
			ConfidenceScore: contracts.Float(float64(i%10) / 10),
			Status:          status,
			CreatedAt:       base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func loadedStore(t *testing.T, n, pageSize int) *Store {
	t.Helper()
	s := NewStore(Config{Source: &fakeSource{contacts: makeContacts(n)}, PageSize: pageSize, LoadPageSize: 7})
	res := s.Load(context.Background())
	require.NoError(t, res.Err)
	require.Equal(t, n, res.Count)
	return s
}

func assertSelectionSubset(t *testing.T, snap *Snapshot) {
	t.Helper()
	present := make(map[contracts.ContactID]bool, len(snap.Contacts))
	for _, c := range snap.Contacts {
		present[c.ID] = true
	}
	for id := range snap.Selected {
		assert.True(t, present[id], "selected id %s not in collection", id)
	}
}

func TestLoad_WalksAllPages(t *testing.T) {
	src := &fakeSource{contacts: makeContacts(25)}
	s := NewStore(Config{Source: src, LoadPageSize: 10})

	res := s.Load(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 25, res.Count)
	assert.Equal(t, 3, src.calls)
	snap := s.Snapshot()
	assert.Len(t, snap.Contacts, 25)
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Err)
	assert.Equal(t, contracts.ContactID("c-01"), snap.Contacts[0].ID)
}

func TestLoad_WalksAllPagesWithoutTotal(t *testing.T) {
	src := &fakeSource{contacts: makeContacts(25), noTotal: true}
	s := NewStore(Config{Source: src, LoadPageSize: 10})

	res := s.Load(context.Background())

	require.NoError(t, res.Err)
	assert.Equal(t, 25, res.Count)
	assert.Equal(t, 3, src.calls)
	assert.Len(t, s.Snapshot().Contacts, 25)
}

func TestLoad_FailureKeepsPreviousCollection(t *testing.T) {
	src := &fakeSource{contacts: makeContacts(5)}
	s := NewStore(Config{Source: src})
	require.NoError(t, s.Load(context.Background()).Err)

	src.mu.Lock()
	src.err = errors.New("connection refused")
	src.mu.Unlock()

	res := s.Load(context.Background())

	var opErr *OpError
	require.ErrorAs(t, res.Err, &opErr)
	assert.Equal(t, "load", opErr.Op)
	snap := s.Snapshot()
	assert.Len(t, snap.Contacts, 5, "stale-but-available over empty-on-error")
	require.NotNil(t, snap.Err)
	assert.False(t, snap.Loading)
}

func TestLoad_ClearsSelectionAndError(t *testing.T) {
	s := loadedStore(t, 5, 20)
	s.ToggleSelect("c-01")
	s.SetError("bulk_verify", errors.New("boom"))
	require.Equal(t, 1, s.Snapshot().SelectedCount)

	require.NoError(t, s.Load(context.Background()).Err)

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.SelectedCount)
	assert.Nil(t, snap.Err)
}

func TestLoad_Supersession(t *testing.T) {
	first := make(chan struct{})
	second := make(chan struct{})
	src := &fakeSource{contacts: makeContacts(3), gates: []chan struct{}{first, second}}
	s := NewStore(Config{Source: src})

	results := make(chan LoadResult, 2)
	go func() { results <- s.Load(context.Background()) }()
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls == 1
	}, time.Second, time.Millisecond)

	go func() { results <- s.Load(context.Background()) }()
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls == 2
	}, time.Second, time.Millisecond)

	// Second response arrives first, then the stale one.
	src.mu.Lock()
	src.contacts = makeContacts(7)
	src.mu.Unlock()
	close(second)
	r2 := <-results
	close(first)
	r1 := <-results

	assert.False(t, r2.Superseded)
	assert.Equal(t, 7, r2.Count)
	assert.True(t, r1.Superseded)
	assert.ErrorIs(t, r1.Err, ErrSuperseded)
	assert.Len(t, s.Snapshot().Contacts, 7)
	assert.False(t, s.Snapshot().Loading)
}

func TestLoad_StaleFailureDiscarded(t *testing.T) {
	first := make(chan struct{})
	src := &fakeSource{contacts: makeContacts(2), gates: []chan struct{}{first}}
	s := NewStore(Config{Source: src})

	done := make(chan LoadResult, 1)
	go func() { done <- s.Load(context.Background()) }()
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, s.Load(context.Background()).Err)

	src.mu.Lock()
	src.err = errors.New("late failure")
	src.mu.Unlock()
	close(first)
	stale := <-done

	assert.True(t, stale.Superseded)
	assert.Nil(t, s.Snapshot().Err)
}

func TestQueryChangesResetPage(t *testing.T) {
	status := contracts.StatusPending
	tests := []struct {
		name   string
		mutate func(s *Store)
	}{
		{"ApplyFilter", func(s *Store) { s.ApplyFilter(FilterPatch{Status: &status}) }},
		{"ApplySearch", func(s *Store) { s.ApplySearch("contact") }},
		{"SetPageSize", func(s *Store) { s.SetPageSize(5) }},
		{"ClearFilters", func(s *Store) { s.ClearFilters() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loadedStore(t, 25, 5)
			s.GoToPage(3)
			require.Equal(t, 3, s.Snapshot().Query.Page)

			tt.mutate(s)

			assert.Equal(t, 1, s.Snapshot().Query.Page)
		})
	}
}

func TestSetSort_KeepsPage(t *testing.T) {
	s := loadedStore(t, 25, 5)
	s.GoToPage(3)

	snap := s.SetSort(SortByName, Ascending)

	assert.Equal(t, 3, snap.Query.Page)
	assert.Equal(t, contracts.ContactID("c-11"), snap.Paginated[0].ID)
}

func TestSetSort_InvalidFieldIgnored(t *testing.T) {
	s := loadedStore(t, 3, 5)
	before := s.Snapshot()

	after := s.SetSort("phone_number", Ascending)

	assert.Same(t, before, after)
}

func TestScenarioA_SecondPageHasRemainder(t *testing.T) {
	s := loadedStore(t, 25, 20)

	snap := s.GoToPage(2)

	assert.Equal(t, 2, snap.Query.Page)
	assert.Len(t, snap.Paginated, 5)
	assert.False(t, snap.HasNextPage)
	assert.True(t, snap.HasPrevPage)
}

func TestGoToPage_OutOfRangeIsNoop(t *testing.T) {
	s := loadedStore(t, 25, 20)
	before := s.Snapshot()

	for _, n := range []int{0, -1, 3, 100} {
		snap := s.GoToPage(n)
		assert.Same(t, before, snap, "page %d", n)
	}
	assert.Nil(t, s.Snapshot().Err)
}

func TestScenarioB_FilterToEmpty(t *testing.T) {
	s := loadedStore(t, 25, 20)

	snap := s.ApplySearch("no such contact")

	assert.Empty(t, snap.Filtered)
	assert.Equal(t, 1, snap.TotalPages)
	assert.Equal(t, 1, snap.Query.Page)
	assert.NotNil(t, snap.Paginated)
	assert.Empty(t, snap.Paginated)
	assert.Nil(t, snap.Err)
	assert.False(t, snap.HasNextPage)
	assert.False(t, snap.HasPrevPage)
}

func TestScenarioC_DeleteEventPrunesSelection(t *testing.T) {
	s := loadedStore(t, 5, 20)
	s.ToggleSelect("c-02")
	s.ToggleSelect("c-03")

	var seen []*Snapshot
	unsubscribe := s.Subscribe(func(snap *Snapshot) { seen = append(seen, snap) })
	defer unsubscribe()

	applied := s.ApplyRemoteMutation(contracts.ContactDeletedEvent{ID: "c-02"})

	require.True(t, applied)
	require.Len(t, seen, 1, "removal from collection and selection is a single mutation")
	snap := seen[0]
	_, inCollection := s.Contact("c-02")
	assert.False(t, inCollection)
	assert.False(t, snap.IsSelected("c-02"))
	assert.True(t, snap.IsSelected("c-03"))
	assert.Len(t, snap.Contacts, 4)
	assertSelectionSubset(t, snap)
}

func TestScenarioE_SelectAllVisibleOnlyFiltered(t *testing.T) {
	s := loadedStore(t, 25, 5)
	approved := contracts.StatusApproved

	s.ApplyFilter(FilterPatch{Status: &approved})
	snap := s.ToggleSelectAllVisible()

	require.NotEmpty(t, snap.Filtered)
	assert.Equal(t, len(snap.Filtered), snap.SelectedCount)
	for id := range snap.Selected {
		c, ok := s.Contact(id)
		require.True(t, ok)
		assert.Equal(t, contracts.StatusApproved, c.Status)
	}
	assert.True(t, snap.AllVisibleSelected)

	snap = s.ToggleSelectAllVisible()
	assert.Equal(t, 0, snap.SelectedCount)
}

func TestToggleSelectAllVisible_KeepsSelectionOutsideFilter(t *testing.T) {
	s := loadedStore(t, 6, 20)
	s.ToggleSelect("c-02") // pending, outside the approved filter
	approved := contracts.StatusApproved
	s.ApplyFilter(FilterPatch{Status: &approved})

	s.ToggleSelectAllVisible()
	snap := s.ToggleSelectAllVisible()

	assert.True(t, snap.IsSelected("c-02"))
	assert.Equal(t, 1, snap.SelectedCount)
}

func TestToggleSelect_UnknownIDIgnored(t *testing.T) {
	s := loadedStore(t, 3, 20)

	snap := s.ToggleSelect("nope")

	assert.Equal(t, 0, snap.SelectedCount)
	assertSelectionSubset(t, snap)
}

func TestApplyRemoteMutation_Upserts(t *testing.T) {
	s := loadedStore(t, 3, 20)
	updated, _ := s.Contact("c-02")
	updated.Name = "Renamed GmbH"

	s.ApplyRemoteMutation(contracts.ContactEvent{Kind: contracts.MessageContactUpdated, Contact: updated})
	s.ApplyRemoteMutation(contracts.ContactEvent{Kind: contracts.MessageContactCreated, Contact: contracts.Contact{ID: "c-99", Name: "New"}})

	snap := s.Snapshot()
	require.Len(t, snap.Contacts, 4)
	assert.Equal(t, "Renamed GmbH", snap.Contacts[1].Name, "update keeps the collection position")
	assert.Equal(t, contracts.ContactID("c-99"), snap.Contacts[3].ID)
}

func TestApplyRemoteMutation_KeepsEarlierSnapshots(t *testing.T) {
	s := loadedStore(t, 4, 20)
	before := s.Snapshot()

	updated, _ := s.Contact("c-03")
	updated.Name = "Renamed"
	s.ApplyRemoteMutation(contracts.ContactEvent{Kind: contracts.MessageContactUpdated, Contact: updated})
	s.ApplyRemoteMutation(contracts.ContactDeletedEvent{ID: "c-01"})
	s.ApplyRemoteMutation(contracts.ContactEvent{Kind: contracts.MessageContactCreated, Contact: contracts.Contact{ID: "c-50", Name: "Appended"}})

	assert.Equal(t, "Contact 03", before.Contacts[2].Name)
	assert.Equal(t, contracts.ContactID("c-01"), before.Contacts[0].ID)
	assert.Len(t, before.Contacts, 4)

	after := s.Snapshot()
	ids := make([]contracts.ContactID, len(after.Contacts))
	for i, c := range after.Contacts {
		ids[i] = c.ID
	}
	assert.Equal(t, []contracts.ContactID{"c-02", "c-03", "c-04", "c-50"}, ids)
	assert.Equal(t, "Renamed", after.Contacts[1].Name)

	got, ok := s.Contact("c-04")
	require.True(t, ok)
	assert.Equal(t, "Contact 04", got.Name)
	assert.True(t, s.ToggleSelect("c-50").IsSelected("c-50"))
}

func TestApplyRemoteMutation_MergesPartialPayloads(t *testing.T) {
	decode := func(t *testing.T, typ contracts.MessageType, data string) contracts.Event {
		t.Helper()
		ev, err := contracts.DecodeEvent(contracts.Envelope{Type: typ, Data: []byte(data)})
		require.NoError(t, err)
		return ev
	}

	t.Run("approval by contact_id keeps fields", func(t *testing.T) {
		s := loadedStore(t, 3, 20)
		before, _ := s.Contact("c-02")

		require.True(t, s.ApplyRemoteMutation(decode(t, contracts.MessageContactApproved, `{"contact_id":"c-02"}`)))

		got, ok := s.Contact("c-02")
		require.True(t, ok)
		assert.Equal(t, contracts.StatusApproved, got.Status)
		assert.Equal(t, before.Name, got.Name)
		assert.Equal(t, before.Email, got.Email)
		assert.Equal(t, before.Company, got.Company)
		require.NotNil(t, got.ConfidenceScore)
		assert.Equal(t, *before.ConfidenceScore, *got.ConfidenceScore)
	})

	t.Run("rejection sets reason only", func(t *testing.T) {
		s := loadedStore(t, 3, 20)

		require.True(t, s.ApplyRemoteMutation(decode(t, contracts.MessageContactRejected, `{"id":"c-03","rejection_reason":"duplicate"}`)))

		got, _ := s.Contact("c-03")
		assert.Equal(t, contracts.StatusRejected, got.Status)
		assert.Equal(t, "duplicate", got.RejectionReason)
		assert.Equal(t, "Contact 03", got.Name)
	})

	t.Run("update overlays given fields", func(t *testing.T) {
		s := loadedStore(t, 3, 20)

		require.True(t, s.ApplyRemoteMutation(decode(t, contracts.MessageContactUpdated, `{"id":"c-01","phone":"+49 40 123"}`)))

		got, _ := s.Contact("c-01")
		assert.Equal(t, "+49 40 123", got.Phone)
		assert.Equal(t, "Contact 01", got.Name)
		assert.Equal(t, contracts.StatusApproved, got.Status)
		assert.Equal(t, contracts.ContactID("c-01"), s.Snapshot().Contacts[0].ID)
	})

	t.Run("status-only event for unknown id is ignored", func(t *testing.T) {
		s := loadedStore(t, 3, 20)
		before := s.Snapshot()

		assert.False(t, s.ApplyRemoteMutation(decode(t, contracts.MessageContactApproved, `{"contact_id":"c-77"}`)))
		assert.Same(t, before, s.Snapshot())
	})
}

func TestApplyRemoteMutation_IgnoresInvalid(t *testing.T) {
	s := loadedStore(t, 3, 20)
	before := s.Snapshot()

	assert.False(t, s.ApplyRemoteMutation(contracts.ContactEvent{Kind: contracts.MessageContactCreated}))
	assert.False(t, s.ApplyRemoteMutation(contracts.ContactDeletedEvent{ID: "missing"}))
	assert.Same(t, before, s.Snapshot())
}

func TestApplyRemoteMutation_NoticeAndAnalytics(t *testing.T) {
	s := loadedStore(t, 1, 20)

	s.ApplyRemoteMutation(contracts.NotificationEvent{Level: "warning", Title: "Maintenance", Message: "at 22:00"})
	s.ApplyRemoteMutation(contracts.AnalyticsEvent{Metrics: map[string]any{"total_contacts": 1.0}})

	snap := s.Snapshot()
	require.NotNil(t, snap.Notice)
	assert.Equal(t, "Maintenance", snap.Notice.Title)
	assert.Equal(t, 1.0, snap.Analytics["total_contacts"])

	assert.Nil(t, s.DismissNotice().Notice)
}

func TestApplyBulkResult(t *testing.T) {
	t.Run("delete removes and prunes", func(t *testing.T) {
		s := loadedStore(t, 5, 20)
		s.ToggleSelect("c-01")
		s.ToggleSelect("c-02")

		snap := s.ApplyBulkResult(contracts.BulkDelete, []contracts.ContactID{"c-01"}, "")

		assert.Len(t, snap.Contacts, 4)
		assert.False(t, snap.IsSelected("c-01"))
		assert.True(t, snap.IsSelected("c-02"))
		assertSelectionSubset(t, snap)
	})

	t.Run("verify approves in place", func(t *testing.T) {
		s := loadedStore(t, 5, 20)

		s.ApplyBulkResult(contracts.BulkVerify, []contracts.ContactID{"c-02", "c-03"}, "")

		c, _ := s.Contact("c-02")
		assert.Equal(t, contracts.StatusApproved, c.Status)
		assert.Len(t, s.Snapshot().Contacts, 5)
	})

	t.Run("reject records reason", func(t *testing.T) {
		s := loadedStore(t, 5, 20)

		s.ApplyBulkResult(contracts.BulkReject, []contracts.ContactID{"c-04"}, "duplicate")

		c, _ := s.Contact("c-04")
		assert.Equal(t, contracts.StatusRejected, c.Status)
		assert.Equal(t, "duplicate", c.RejectionReason)
	})

	t.Run("export leaves store untouched", func(t *testing.T) {
		s := loadedStore(t, 5, 20)
		s.ToggleSelect("c-01")
		before := s.Snapshot()

		after := s.ApplyBulkResult(contracts.BulkExport, []contracts.ContactID{"c-01"}, "")

		assert.Same(t, before, after)
	})
}

func TestPageClampedAfterRemoval(t *testing.T) {
	s := loadedStore(t, 21, 20)
	s.GoToPage(2)

	applied := s.ApplyRemoteMutation(contracts.ContactDeletedEvent{ID: "c-01"})

	require.True(t, applied)
	assert.Equal(t, 1, s.Snapshot().Query.Page)
	assert.Equal(t, 1, s.Snapshot().TotalPages)
}

func TestSubscribe_OrderAndUnsubscribe(t *testing.T) {
	s := loadedStore(t, 3, 20)
	var versions []uint64
	unsubscribe := s.Subscribe(func(snap *Snapshot) { versions = append(versions, snap.Version) })

	s.ApplySearch("a")
	s.ApplySearch("b")
	unsubscribe()
	unsubscribe()
	s.ApplySearch("c")

	require.Len(t, versions, 2)
	assert.Less(t, versions[0], versions[1])
}

func TestSetRealtimeStatus(t *testing.T) {
	s := NewStore(Config{})
	terminal := errors.New("reconnect attempts exhausted")

	snap := s.SetRealtimeStatus(RealtimeClosed, terminal)

	assert.Equal(t, RealtimeClosed, snap.Realtime.State)
	assert.ErrorIs(t, snap.Realtime.Err, terminal)
	assert.Same(t, snap, s.SetRealtimeStatus(RealtimeClosed, terminal))
}

func TestPaginatedLengthProperty(t *testing.T) {
	for _, n := range []int{0, 1, 19, 20, 21, 40, 57} {
		for _, size := range []int{1, 7, 20} {
			s := loadedStore(t, n, size)
			total := s.Snapshot().TotalPages
			require.GreaterOrEqual(t, total, 1)
			for page := 1; page <= total; page++ {
				snap := s.GoToPage(page)
				want := size
				if rest := n - (page-1)*size; rest < want {
					want = rest
				}
				if want < 0 {
					want = 0
				}
				assert.Len(t, snap.Paginated, want, "n=%d size=%d page=%d", n, size, page)
			}
		}
	}
}
