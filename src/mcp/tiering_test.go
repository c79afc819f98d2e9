package mcp

import (
	"fmt"
	"testing"

	"mwa-review/src/contracts"
)

func TestClassifyContact(t *testing.T) {
	tests := []struct {
		name    string
		contact contracts.Contact
		want    string
	}{
		{"confident with email", contracts.Contact{Email: "a@b.de", ConfidenceScore: contracts.Float(0.85)}, TierReady},
		{"confident with phone", contracts.Contact{Phone: "+49", ConfidenceScore: contracts.Float(0.8)}, TierReady},
		{"confident but unreachable", contracts.Contact{ConfidenceScore: contracts.Float(0.95)}, TierWeak},
		{"middling", contracts.Contact{Email: "a@b.de", ConfidenceScore: contracts.Float(0.6)}, TierReview},
		{"low", contracts.Contact{Email: "a@b.de", ConfidenceScore: contracts.Float(0.2)}, TierWeak},
		{"missing score", contracts.Contact{Email: "a@b.de"}, TierWeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyContact(tt.contact); got != tt.want {
				t.Errorf("classifyContact() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTierLimits(t *testing.T) {
	tests := []struct {
		limit               int
		ready, review, weak int
	}{
		{0, DefaultReadyLimit, DefaultReviewLimit, DefaultWeakLimit},
		{DefaultReadyLimit, DefaultReadyLimit, DefaultReviewLimit, DefaultWeakLimit},
		{9, 9, 6, 3},
		{1, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit=%d", tt.limit), func(t *testing.T) {
			ready, review, weak := tierLimits(tt.limit)
			if ready != tt.ready || review != tt.review || weak != tt.weak {
				t.Errorf("tierLimits(%d) = %d/%d/%d, want %d/%d/%d",
					tt.limit, ready, review, weak, tt.ready, tt.review, tt.weak)
			}
		})
	}
}

func TestTierContacts(t *testing.T) {
	var contacts []contracts.Contact
	for i := 0; i < 10; i++ {
		contacts = append(contacts, contracts.Contact{
			ID:              contracts.ContactID(fmt.Sprintf("c-%d", i)),
			Email:           "x@y.de",
			ConfidenceScore: contracts.Float(float64(i) / 10),
		})
	}

	q := TierContacts(contacts, 2)

	if q.Scanned != 10 {
		t.Errorf("Scanned = %d, want 10", q.Scanned)
	}
	// 0.8 and 0.9 are ready; 0.4..0.7 need review; 0.0..0.3 are weak
	if q.Counts[TierReady] != 2 || q.Counts[TierReview] != 4 || q.Counts[TierWeak] != 4 {
		t.Errorf("Counts = %v", q.Counts)
	}
	if len(q.Ready) != 2 || q.Ready[0].ID != "c-9" || q.Ready[1].ID != "c-8" {
		t.Errorf("Ready = %+v, want c-9 then c-8", q.Ready)
	}
	// limit 2 scales review to 1 and weak to 1
	if len(q.Review) != 1 || q.Review[0].ID != "c-7" {
		t.Errorf("Review = %+v, want only c-7", q.Review)
	}
	if len(q.Weak) != 1 || q.Weak[0].ID != "c-3" {
		t.Errorf("Weak = %+v, want only c-3", q.Weak)
	}
	if contacts[0].ID != "c-0" {
		t.Error("TierContacts() modified its input")
	}
}

func TestTierContacts_Empty(t *testing.T) {
	q := TierContacts(nil, 0)
	if q.Ready == nil || q.Review == nil || q.Weak == nil {
		t.Error("expected empty, non-nil tiers so they encode as []")
	}
	if q.Scanned != 0 {
		t.Errorf("Scanned = %d, want 0", q.Scanned)
	}
}
