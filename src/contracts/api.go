package contracts

import "context"

// ListQuery is the server-side query for GET /contacts.
type ListQuery struct {
	Search        string
	AgencyType    AgencyType
	MinConfidence *float64
	MinQuality    *float64
	Status        ApprovalStatus
	Page          int
	PageSize      int
}

// ListResult is the body of GET /contacts.
type ListResult struct {
	Contacts []Contact `json:"contacts"`
	Total    int       `json:"total"`
}

// ContactPatch is the body of PATCH /contacts/{id}. Nil fields are left unchanged.
type ContactPatch struct {
	Status          *ApprovalStatus `json:"status,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	AgencyType      *AgencyType     `json:"agency_type,omitempty"`
	Position        *string         `json:"position,omitempty"`
}

// BulkAction is the verb of POST /contacts/bulk.
type BulkAction string

const (
	BulkVerify BulkAction = "verify"
	BulkReject BulkAction = "reject"
	BulkExport BulkAction = "export"
	BulkDelete BulkAction = "delete"
)

// Valid reports whether a is a supported bulk action.
func (a BulkAction) Valid() bool {
	switch a {
	case BulkVerify, BulkReject, BulkExport, BulkDelete:
		return true
	}
	return false
}

// BulkRequest is the body of POST /contacts/bulk.
type BulkRequest struct {
	ContactIDs []ContactID `json:"contact_ids"`
	Action     BulkAction  `json:"action"`
	Reason     string      `json:"reason,omitempty"`
}

// BulkFailure names one contact the server could not act on.
type BulkFailure struct {
	ID     ContactID `json:"id"`
	Reason string    `json:"reason"`
}

// BulkResult is the response of POST /contacts/bulk. There is no all-or-nothing guarantee:
// both lists may be non-empty.
type BulkResult struct {
	Succeeded []ContactID   `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// ScoringResult is the body of GET /contacts/{id}/scoring.
type ScoringResult struct {
	OverallScore    float64            `json:"overall_score"`
	Breakdown       map[string]float64 `json:"breakdown"`
	Recommendations []string           `json:"recommendations"`
}

// ContactAPI is the contact backend consumed by the dashboard. The HTTP client and the
// direct Postgres and in-memory stores all satisfy it.
type ContactAPI interface {
	ListContacts(ctx context.Context, q ListQuery) (*ListResult, error)
	GetContact(ctx context.Context, id ContactID) (*Contact, error)
	UpdateContact(ctx context.Context, id ContactID, patch ContactPatch) (*Contact, error)
	BulkAction(ctx context.Context, req BulkRequest) (*BulkResult, error)
	GetScoring(ctx context.Context, id ContactID) (*ScoringResult, error)
	Close() error
}
