package mcp

import (
	"sort"

	"mwa-review/src/contracts"
)

// Review tiers.
const (
	TierReady  = "ready_to_verify"
	TierReview = "needs_review"
	TierWeak   = "likely_reject"
)

// Confidence thresholds. A contact is ready when it is confident and reachable, weak when
// it is unreachable or below WeakConfidence.
const (
	ReadyConfidence = 0.8
	WeakConfidence  = 0.4
)

// Default per-tier limits. Ready contacts get the most room since they are the ones an
// agent can act on directly.
const (
	DefaultReadyLimit  = 15
	DefaultReviewLimit = 10
	DefaultWeakLimit   = 5
)

// classifyContact returns the review tier of c.
func classifyContact(c contracts.Contact) string {
	conf := 0.0
	if c.ConfidenceScore != nil {
		conf = *c.ConfidenceScore
	}
	reachable := c.Email != "" || c.Phone != ""

	switch {
	case !reachable || conf < WeakConfidence:
		return TierWeak
	case conf >= ReadyConfidence:
		return TierReady
	default:
		return TierReview
	}
}

// tierLimits scales the default limits when the caller asks for a different ready limit.
func tierLimits(limit int) (ready, review, weak int) {
	if limit <= 0 || limit == DefaultReadyLimit {
		return DefaultReadyLimit, DefaultReviewLimit, DefaultWeakLimit
	}
	return limit, max(1, limit*2/3), max(1, limit/3)
}

// TierContacts groups contacts into review tiers, most confident first within each tier.
// The input slice is not modified.
func TierContacts(contacts []contracts.Contact, limit int) ReviewQueue {
	readyLimit, reviewLimit, weakLimit := tierLimits(limit)

	sorted := append([]contracts.Contact(nil), contacts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return confidence(sorted[i]) > confidence(sorted[j])
	})

	q := ReviewQueue{
		Scanned: len(contacts),
		Ready:   []ContactSummary{},
		Review:  []ContactSummary{},
		Weak:    []ContactSummary{},
		Counts:  map[string]int{TierReady: 0, TierReview: 0, TierWeak: 0},
	}
	for _, c := range sorted {
		tier := classifyContact(c)
		q.Counts[tier]++
		switch tier {
		case TierReady:
			if len(q.Ready) < readyLimit {
				q.Ready = append(q.Ready, summarizeContact(c))
			}
		case TierReview:
			if len(q.Review) < reviewLimit {
				q.Review = append(q.Review, summarizeContact(c))
			}
		default:
			if len(q.Weak) < weakLimit {
				q.Weak = append(q.Weak, summarizeContact(c))
			}
		}
	}
	return q
}

// confidence orders missing scores last.
func confidence(c contracts.Contact) float64 {
	if c.ConfidenceScore == nil {
		return -1
	}
	return *c.ConfidenceScore
}
