// Package mcp exposes read-only contact review tools to agent tooling over the Model Context
// Protocol.
package mcp

// ContactSummary is a compact, sanitized contact for tool output.
type ContactSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Company     string   `json:"company,omitempty"`
	AgencyType  string   `json:"agency_type"`
	Status      string   `json:"status"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Quality     *float64 `json:"quality,omitempty"`
	MarketAreas []string `json:"market_areas,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// ContactListResponse is the list_contacts result.
type ContactListResponse struct {
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Contacts []ContactSummary `json:"contacts"`
}

// ReviewQueue is the review_queue result: pending contacts split by how much review they need.
type ReviewQueue struct {
	Scanned int              `json:"scanned"`
	Ready   []ContactSummary `json:"ready_to_verify"`
	Review  []ContactSummary `json:"needs_review"`
	Weak    []ContactSummary `json:"likely_reject"`
	// Counts holds the tier sizes before limits were applied.
	Counts map[string]int `json:"counts"`
}
