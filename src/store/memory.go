package store

import (
	"context"
	"sync"
	"time"

	"mwa-review/src/collection"
	"mwa-review/src/contracts"
)

// MemoryStore is an in-memory implementation of Store.
// Useful for tests and the demo dashboard.
type MemoryStore struct {
	mu    sync.RWMutex
	order []contracts.ContactID
	byID  map[contracts.ContactID]contracts.Contact
	now   func() time.Time
}

// NewMemoryStore creates a store seeded with contacts, kept in the given order.
func NewMemoryStore(contacts ...contracts.Contact) *MemoryStore {
	s := &MemoryStore{
		byID: make(map[contracts.ContactID]contracts.Contact, len(contacts)),
		now:  time.Now,
	}
	for _, c := range contacts {
		s.Put(c)
	}
	return s
}

// Put inserts or replaces a contact. New ids are appended.
func (s *MemoryStore) Put(c contracts.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[c.ID]; !exists {
		s.order = append(s.order, c.ID)
	}
	s.byID[c.ID] = c.Clone()
}

// Len returns the number of stored contacts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// ListContacts filters in insertion order and returns one page.
func (s *MemoryStore) ListContacts(ctx context.Context, q contracts.ListQuery) (*contracts.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	all := make([]contracts.Contact, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.byID[id].Clone())
	}
	s.mu.RUnlock()

	filtered := collection.FilterContacts(all, q.Search, collection.Filter{
		AgencyType:    q.AgencyType,
		MinConfidence: q.MinConfidence,
		MinQuality:    q.MinQuality,
		Status:        q.Status,
	})

	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = collection.DefaultPageSize
	}
	return &contracts.ListResult{
		Contacts: collection.Paginate(filtered, page, size),
		Total:    len(filtered),
	}, nil
}

// GetContact returns a copy of the contact.
func (s *MemoryStore) GetContact(ctx context.Context, id contracts.ContactID) (*contracts.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.byID[id]
	if !exists {
		return nil, notFound(id)
	}
	out := c.Clone()
	return &out, nil
}

// UpdateContact applies the non-nil fields of patch.
func (s *MemoryStore) UpdateContact(ctx context.Context, id contracts.ContactID, patch contracts.ContactPatch) (*contracts.Contact, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.byID[id]
	if !exists {
		return nil, notFound(id)
	}
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	if patch.RejectionReason != nil {
		c.RejectionReason = *patch.RejectionReason
	}
	if patch.AgencyType != nil {
		c.AgencyType = *patch.AgencyType
	}
	if patch.Position != nil {
		c.Position = *patch.Position
	}
	c.UpdatedAt = s.now()
	s.byID[id] = c

	out := c.Clone()
	return &out, nil
}

// BulkAction applies the action to every known id. Unknown ids are reported as failed.
func (s *MemoryStore) BulkAction(ctx context.Context, req contracts.BulkRequest) (*contracts.BulkResult, error) {
	if err := validateBulk(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &contracts.BulkResult{Succeeded: []contracts.ContactID{}, Failed: []contracts.BulkFailure{}}
	removed := make(map[contracts.ContactID]struct{})
	now := s.now()

	for _, id := range req.ContactIDs {
		c, exists := s.byID[id]
		if !exists {
			result.Failed = append(result.Failed, contracts.BulkFailure{ID: id, Reason: NotFoundReason})
			continue
		}
		switch req.Action {
		case contracts.BulkVerify:
			c.Status = contracts.StatusApproved
			c.RejectionReason = ""
			c.UpdatedAt = now
			s.byID[id] = c
		case contracts.BulkReject:
			c.Status = contracts.StatusRejected
			c.RejectionReason = req.Reason
			c.UpdatedAt = now
			s.byID[id] = c
		case contracts.BulkDelete:
			delete(s.byID, id)
			removed[id] = struct{}{}
		case contracts.BulkExport:
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	if len(removed) > 0 {
		kept := s.order[:0]
		for _, id := range s.order {
			if _, gone := removed[id]; !gone {
				kept = append(kept, id)
			}
		}
		s.order = kept
	}
	return result, nil
}

// GetScoring scores the stored contact.
func (s *MemoryStore) GetScoring(ctx context.Context, id contracts.ContactID) (*contracts.ScoringResult, error) {
	c, err := s.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	return ScoreContact(*c), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
