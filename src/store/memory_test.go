package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"mwa-review/src/contracts"
)

func seedContacts() []contracts.Contact {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return []contracts.Contact{
		{ID: "c-1", Name: "Anna Berg", Email: "anna@relo.de", Company: "Relo GmbH", AgencyType: contracts.AgencyRelocation, ConfidenceScore: contracts.Float(0.9), Status: contracts.StatusPending, CreatedAt: base},
		{ID: "c-2", Name: "Ben Kurz", Email: "ben@immo.de", Company: "Immo AG", AgencyType: contracts.AgencyRealEstate, ConfidenceScore: contracts.Float(0.4), Status: contracts.StatusApproved, CreatedAt: base.Add(time.Hour)},
		{ID: "c-3", Name: "Cora Lenz", Phone: "+49 30 1234", AgencyType: contracts.AgencyRelocation, Status: contracts.StatusPending, CreatedAt: base.Add(2 * time.Hour)},
	}
}

func TestMemoryStore_ListContacts(t *testing.T) {
	store := NewMemoryStore(seedContacts()...)
	defer store.Close()
	ctx := context.Background()

	tests := []struct {
		name    string
		query   contracts.ListQuery
		wantIDs []contracts.ContactID
		total   int
	}{
		{"all", contracts.ListQuery{}, []contracts.ContactID{"c-1", "c-2", "c-3"}, 3},
		{"search company", contracts.ListQuery{Search: "immo"}, []contracts.ContactID{"c-2"}, 1},
		{"search phone", contracts.ListQuery{Search: "1234"}, []contracts.ContactID{"c-3"}, 1},
		{"agency", contracts.ListQuery{AgencyType: contracts.AgencyRelocation}, []contracts.ContactID{"c-1", "c-3"}, 2},
		{"min confidence excludes missing", contracts.ListQuery{MinConfidence: contracts.Float(0.5)}, []contracts.ContactID{"c-1"}, 1},
		{"status", contracts.ListQuery{Status: contracts.StatusApproved}, []contracts.ContactID{"c-2"}, 1},
		{"second page", contracts.ListQuery{Page: 2, PageSize: 2}, []contracts.ContactID{"c-3"}, 3},
		{"past the end", contracts.ListQuery{Page: 5, PageSize: 2}, nil, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := store.ListContacts(ctx, tt.query)
			if err != nil {
				t.Fatalf("ListContacts failed: %v", err)
			}
			if res.Total != tt.total {
				t.Errorf("Expected total %d, got %d", tt.total, res.Total)
			}
			if len(res.Contacts) != len(tt.wantIDs) {
				t.Fatalf("Expected %d contacts, got %d", len(tt.wantIDs), len(res.Contacts))
			}
			for i, id := range tt.wantIDs {
				if res.Contacts[i].ID != id {
					t.Errorf("Contact %d: expected %s, got %s", i, id, res.Contacts[i].ID)
				}
			}
		})
	}
}

func TestMemoryStore_GetContactReturnsCopy(t *testing.T) {
	store := NewMemoryStore(seedContacts()...)
	ctx := context.Background()

	c, err := store.GetContact(ctx, "c-1")
	if err != nil {
		t.Fatalf("GetContact failed: %v", err)
	}
	*c.ConfidenceScore = 0

	again, _ := store.GetContact(ctx, "c-1")
	if *again.ConfidenceScore != 0.9 {
		t.Errorf("Stored contact was mutated through returned copy: %v", *again.ConfidenceScore)
	}

	if _, err := store.GetContact(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_UpdateContact(t *testing.T) {
	store := NewMemoryStore(seedContacts()...)
	fixed := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	ctx := context.Background()

	status := contracts.StatusRejected
	reason := "duplicate"
	c, err := store.UpdateContact(ctx, "c-1", contracts.ContactPatch{Status: &status, RejectionReason: &reason})
	if err != nil {
		t.Fatalf("UpdateContact failed: %v", err)
	}
	if c.Status != contracts.StatusRejected || c.RejectionReason != "duplicate" {
		t.Errorf("Patch not applied: %+v", c)
	}
	if c.Company != "Relo GmbH" {
		t.Errorf("Expected untouched company, got %q", c.Company)
	}
	if !c.UpdatedAt.Equal(fixed) {
		t.Errorf("Expected updated_at %v, got %v", fixed, c.UpdatedAt)
	}

	bad := contracts.ApprovalStatus("archived")
	if _, err := store.UpdateContact(ctx, "c-1", contracts.ContactPatch{Status: &bad}); err == nil {
		t.Error("Expected error for invalid status")
	}
	if _, err := store.UpdateContact(ctx, "missing", contracts.ContactPatch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_BulkAction(t *testing.T) {
	ctx := context.Background()

	t.Run("verify approves and reports unknown ids", func(t *testing.T) {
		store := NewMemoryStore(seedContacts()...)
		res, err := store.BulkAction(ctx, contracts.BulkRequest{
			Action:     contracts.BulkVerify,
			ContactIDs: []contracts.ContactID{"c-1", "nope", "c-3"},
		})
		if err != nil {
			t.Fatalf("BulkAction failed: %v", err)
		}
		if len(res.Succeeded) != 2 || res.Succeeded[0] != "c-1" || res.Succeeded[1] != "c-3" {
			t.Errorf("Unexpected succeeded: %v", res.Succeeded)
		}
		if len(res.Failed) != 1 || res.Failed[0].ID != "nope" || res.Failed[0].Reason != NotFoundReason {
			t.Errorf("Unexpected failed: %v", res.Failed)
		}
		c, _ := store.GetContact(ctx, "c-3")
		if c.Status != contracts.StatusApproved {
			t.Errorf("Expected approved, got %s", c.Status)
		}
	})

	t.Run("reject stores reason", func(t *testing.T) {
		store := NewMemoryStore(seedContacts()...)
		if _, err := store.BulkAction(ctx, contracts.BulkRequest{
			Action:     contracts.BulkReject,
			ContactIDs: []contracts.ContactID{"c-2"},
			Reason:     "out of market",
		}); err != nil {
			t.Fatalf("BulkAction failed: %v", err)
		}
		c, _ := store.GetContact(ctx, "c-2")
		if c.Status != contracts.StatusRejected || c.RejectionReason != "out of market" {
			t.Errorf("Unexpected contact after reject: %+v", c)
		}
	})

	t.Run("delete removes and keeps order", func(t *testing.T) {
		store := NewMemoryStore(seedContacts()...)
		if _, err := store.BulkAction(ctx, contracts.BulkRequest{
			Action:     contracts.BulkDelete,
			ContactIDs: []contracts.ContactID{"c-2"},
		}); err != nil {
			t.Fatalf("BulkAction failed: %v", err)
		}
		res, _ := store.ListContacts(ctx, contracts.ListQuery{})
		if res.Total != 2 || res.Contacts[0].ID != "c-1" || res.Contacts[1].ID != "c-3" {
			t.Errorf("Unexpected contacts after delete: %+v", res.Contacts)
		}
		if store.Len() != 2 {
			t.Errorf("Expected 2 contacts, got %d", store.Len())
		}
	})

	t.Run("export leaves data untouched", func(t *testing.T) {
		store := NewMemoryStore(seedContacts()...)
		res, err := store.BulkAction(ctx, contracts.BulkRequest{
			Action:     contracts.BulkExport,
			ContactIDs: []contracts.ContactID{"c-1", "c-2"},
		})
		if err != nil {
			t.Fatalf("BulkAction failed: %v", err)
		}
		if len(res.Succeeded) != 2 || store.Len() != 3 {
			t.Errorf("Unexpected export result %+v, len %d", res, store.Len())
		}
	})

	t.Run("invalid requests", func(t *testing.T) {
		store := NewMemoryStore(seedContacts()...)
		if _, err := store.BulkAction(ctx, contracts.BulkRequest{Action: "archive", ContactIDs: []contracts.ContactID{"c-1"}}); err == nil {
			t.Error("Expected error for unknown action")
		}
		if _, err := store.BulkAction(ctx, contracts.BulkRequest{Action: contracts.BulkVerify}); err == nil {
			t.Error("Expected error for empty id list")
		}
	})
}

func TestMemoryStore_PutReplacesInPlace(t *testing.T) {
	store := NewMemoryStore(seedContacts()...)
	store.Put(contracts.Contact{ID: "c-1", Name: "Anna Renamed"})
	store.Put(contracts.Contact{ID: "c-4", Name: "Dora"})

	res, _ := store.ListContacts(context.Background(), contracts.ListQuery{})
	if res.Contacts[0].Name != "Anna Renamed" {
		t.Errorf("Expected replaced contact first, got %q", res.Contacts[0].Name)
	}
	if res.Contacts[3].ID != "c-4" {
		t.Errorf("Expected new contact appended, got %s", res.Contacts[3].ID)
	}
}

func TestMemoryStore_ListContactsCancelled(t *testing.T) {
	store := NewMemoryStore(seedContacts()...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.ListContacts(ctx, contracts.ListQuery{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
