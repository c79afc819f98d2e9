package collection

import (
	"time"

	"mwa-review/src/contracts"
)

// SortField names the attribute the filtered view is ordered by.
type SortField string

const (
	SortByName       SortField = "name"
	SortByCompany    SortField = "company"
	SortByAgencyType SortField = "agency_type"
	SortByStatus     SortField = "status"
	SortByConfidence SortField = "confidence"
	SortByQuality    SortField = "quality"
	SortByCreatedAt  SortField = "created_at"
	SortByUpdatedAt  SortField = "updated_at"
)

// SortFields lists the sort fields in the order the dashboard cycles through them.
var SortFields = []SortField{
	SortByCreatedAt,
	SortByUpdatedAt,
	SortByName,
	SortByCompany,
	SortByAgencyType,
	SortByStatus,
	SortByConfidence,
	SortByQuality,
}

// Valid reports whether f is a known sort field.
func (f SortField) Valid() bool {
	for _, known := range SortFields {
		if f == known {
			return true
		}
	}
	return false
}

// SortOrder is the sort direction.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// Sort is the sort field and direction of a query.
type Sort struct {
	Field SortField
	Order SortOrder
}

// Filter holds the structured filter fields. Zero values mean "no constraint".
type Filter struct {
	AgencyType    contracts.AgencyType
	MinConfidence *float64
	MinQuality    *float64
	Status        contracts.ApprovalStatus
	LeadSource    string
	// MarketArea matches contacts with at least one market area whose name contains it.
	MarketArea  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// IsEmpty reports whether no structured filter field is set.
func (f Filter) IsEmpty() bool {
	return f.AgencyType == "" &&
		f.MinConfidence == nil &&
		f.MinQuality == nil &&
		f.Status == "" &&
		f.LeadSource == "" &&
		f.MarketArea == "" &&
		f.CreatedFrom == nil &&
		f.CreatedTo == nil
}

// FilterPatch is a partial filter. Nil fields leave the current value unchanged.
// A set field replaces it; the empty string, a negative score or the zero time clear it.
type FilterPatch struct {
	AgencyType    *contracts.AgencyType
	MinConfidence *float64
	MinQuality    *float64
	Status        *contracts.ApprovalStatus
	LeadSource    *string
	MarketArea    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// Merge returns f with the patch applied. Pointer values are copied so the result shares
// nothing with the patch.
func (f Filter) Merge(p FilterPatch) Filter {
	out := f.clone()
	if p.AgencyType != nil {
		out.AgencyType = *p.AgencyType
	}
	if p.MinConfidence != nil {
		out.MinConfidence = scorePatch(*p.MinConfidence)
	}
	if p.MinQuality != nil {
		out.MinQuality = scorePatch(*p.MinQuality)
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.LeadSource != nil {
		out.LeadSource = *p.LeadSource
	}
	if p.MarketArea != nil {
		out.MarketArea = *p.MarketArea
	}
	if p.CreatedFrom != nil {
		out.CreatedFrom = timePatch(*p.CreatedFrom)
	}
	if p.CreatedTo != nil {
		out.CreatedTo = timePatch(*p.CreatedTo)
	}
	return out
}

func (f Filter) clone() Filter {
	out := f
	if f.MinConfidence != nil {
		v := *f.MinConfidence
		out.MinConfidence = &v
	}
	if f.MinQuality != nil {
		v := *f.MinQuality
		out.MinQuality = &v
	}
	if f.CreatedFrom != nil {
		v := *f.CreatedFrom
		out.CreatedFrom = &v
	}
	if f.CreatedTo != nil {
		v := *f.CreatedTo
		out.CreatedTo = &v
	}
	return out
}

func scorePatch(v float64) *float64 {
	if v < 0 {
		return nil
	}
	return &v
}

func timePatch(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// QueryState drives the projection from the full collection to the visible page.
type QueryState struct {
	Search string
	Filter Filter
	Sort   Sort
	// Page is 1-based and always within [1, TotalPages] after a store mutation.
	Page     int
	PageSize int
}

// DefaultPageSize is used when the store is configured without one.
const DefaultPageSize = 20

// NewQueryState returns an unfiltered query on page 1, newest contacts first.
func NewQueryState(pageSize int) QueryState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return QueryState{
		Sort:     Sort{Field: SortByCreatedAt, Order: Descending},
		Page:     1,
		PageSize: pageSize,
	}
}

func (q QueryState) clone() QueryState {
	out := q
	out.Filter = q.Filter.clone()
	return out
}
