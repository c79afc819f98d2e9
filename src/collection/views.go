package collection

import (
	"sort"
	"strings"

	"mwa-review/src/contracts"
)

// Views are the projections of (collection, query, selection). They are recomputed after
// every store mutation and never mutated independently.
type Views struct {
	// Filtered is the full collection narrowed by search and filter, then sorted.
	Filtered []contracts.Contact
	// Paginated is the current page window of Filtered.
	Paginated []contracts.Contact
	// Page is the effective page after clamping into [1, TotalPages].
	Page               int
	TotalPages         int
	SelectedCount      int
	HasNextPage        bool
	HasPrevPage        bool
	AllVisibleSelected bool
}

// Derive computes the views. It is pure: the inputs are not modified and the same inputs
// always yield the same output.
func Derive(contacts []contracts.Contact, q QueryState, selected map[contracts.ContactID]struct{}) Views {
	filtered := SortContacts(FilterContacts(contacts, q.Search, q.Filter), q.Sort)
	total := TotalPages(len(filtered), q.PageSize)
	page := ClampPage(q.Page, total)

	all := len(filtered) > 0
	for _, c := range filtered {
		if _, ok := selected[c.ID]; !ok {
			all = false
			break
		}
	}

	return Views{
		Filtered:           filtered,
		Paginated:          Paginate(filtered, page, q.PageSize),
		Page:               page,
		TotalPages:         total,
		SelectedCount:      len(selected),
		HasNextPage:        page < total,
		HasPrevPage:        page > 1,
		AllVisibleSelected: all,
	}
}

// FilterContacts returns the contacts matching search AND every non-empty filter field,
// preserving input order.
func FilterContacts(contacts []contracts.Contact, search string, f Filter) []contracts.Contact {
	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]contracts.Contact, 0, len(contacts))
	for _, c := range contacts {
		if Matches(c, term, f) {
			out = append(out, c)
		}
	}
	return out
}

// Matches reports whether c satisfies the lower-cased search term and the filter.
// The term is matched case-insensitively against name, email, phone and company.
func Matches(c contracts.Contact, term string, f Filter) bool {
	if term != "" && !matchesSearch(c, term) {
		return false
	}
	if f.AgencyType != "" && c.AgencyType != f.AgencyType {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.MinConfidence != nil && (c.ConfidenceScore == nil || *c.ConfidenceScore < *f.MinConfidence) {
		return false
	}
	if f.MinQuality != nil && (c.QualityScore == nil || *c.QualityScore < *f.MinQuality) {
		return false
	}
	if f.LeadSource != "" && !strings.EqualFold(c.LeadSource, f.LeadSource) {
		return false
	}
	if f.MarketArea != "" && !matchesMarketArea(c, strings.ToLower(f.MarketArea)) {
		return false
	}
	if f.CreatedFrom != nil && c.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && c.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

func matchesSearch(c contracts.Contact, term string) bool {
	for _, field := range []string{c.Name, c.Email, c.Phone, c.Company} {
		if field != "" && strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func matchesMarketArea(c contracts.Contact, area string) bool {
	for _, ma := range c.MarketAreas {
		if strings.Contains(strings.ToLower(ma.Name), area) {
			return true
		}
	}
	return false
}

// SortContacts returns a sorted copy. The sort is stable, so ties keep their input order.
// Missing scores, missing dates and empty strings sort last in both directions.
func SortContacts(contacts []contracts.Contact, s Sort) []contracts.Contact {
	out := append([]contracts.Contact(nil), contacts...)
	if !s.Field.Valid() {
		return out
	}
	desc := s.Order == Descending
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j], s.Field, desc)
	})
	return out
}

func less(a, b contracts.Contact, field SortField, desc bool) bool {
	switch field {
	case SortByName:
		return lessString(a.DisplayName(), b.DisplayName(), desc)
	case SortByCompany:
		return lessString(a.Company, b.Company, desc)
	case SortByAgencyType:
		return lessString(string(a.AgencyType), string(b.AgencyType), desc)
	case SortByStatus:
		return lessString(string(a.Status), string(b.Status), desc)
	case SortByConfidence:
		return lessScore(a.ConfidenceScore, b.ConfidenceScore, desc)
	case SortByQuality:
		return lessScore(a.QualityScore, b.QualityScore, desc)
	case SortByCreatedAt:
		return ordered(a.CreatedAt.IsZero(), b.CreatedAt.IsZero(), a.CreatedAt.Before(b.CreatedAt), b.CreatedAt.Before(a.CreatedAt), desc)
	case SortByUpdatedAt:
		return ordered(a.UpdatedAt.IsZero(), b.UpdatedAt.IsZero(), a.UpdatedAt.Before(b.UpdatedAt), b.UpdatedAt.Before(a.UpdatedAt), desc)
	}
	return false
}

// ordered applies the missing-last rule and the direction to a pair of present/absent values.
func ordered(aMissing, bMissing, aLess, bLess, desc bool) bool {
	switch {
	case aMissing:
		return false
	case bMissing:
		return true
	case desc:
		return bLess
	default:
		return aLess
	}
}

func lessString(a, b string, desc bool) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	return ordered(a == "", b == "", la < lb, lb < la, desc)
}

func lessScore(a, b *float64, desc bool) bool {
	if a == nil || b == nil {
		return ordered(a == nil, b == nil, false, false, desc)
	}
	return ordered(false, false, *a < *b, *b < *a, desc)
}

// TotalPages is ceil(n / pageSize), never less than 1.
func TotalPages(n, pageSize int) int {
	if pageSize <= 0 || n <= 0 {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}

// ClampPage moves page into [1, totalPages].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate returns the window of pageSize contacts starting at (page-1)*pageSize.
// Out-of-range pages yield an empty, non-nil slice.
func Paginate(contacts []contracts.Contact, page, pageSize int) []contracts.Contact {
	if pageSize <= 0 || page < 1 {
		return []contracts.Contact{}
	}
	start := (page - 1) * pageSize
	if start >= len(contacts) {
		return []contracts.Contact{}
	}
	end := start + pageSize
	if end > len(contacts) {
		end = len(contacts)
	}
	return contacts[start:end:end]
}
