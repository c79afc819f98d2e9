// Package contracts defines the contact records, push envelopes and REST shapes shared by the
// dashboard components.
package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ContactID is the opaque, stable identity of a contact. The backend emits it either as a
// JSON string or a JSON number; both decode to the same textual form.
type ContactID string

// UnmarshalJSON accepts both `"c-12"` and `12`.
func (id *ContactID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ContactID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("contact id must be a string or number: %w", err)
	}
	*id = ContactID(n.String())
	return nil
}

// AgencyType classifies the business behind a contact.
type AgencyType string

const (
	AgencyRealEstate         AgencyType = "real_estate_agency"
	AgencyPropertyManagement AgencyType = "property_management"
	AgencyRelocation         AgencyType = "relocation_service"
	AgencyCorporateHousing   AgencyType = "corporate_housing"
	AgencyPrivateLandlord    AgencyType = "private_landlord"
	AgencyHousingCooperative AgencyType = "housing_cooperative"
	AgencyOther              AgencyType = "other"
)

// AgencyTypes lists every agency type in display order.
var AgencyTypes = []AgencyType{
	AgencyRealEstate,
	AgencyPropertyManagement,
	AgencyRelocation,
	AgencyCorporateHousing,
	AgencyPrivateLandlord,
	AgencyHousingCooperative,
	AgencyOther,
}

// Valid reports whether a is one of the known agency types.
func (a AgencyType) Valid() bool {
	for _, known := range AgencyTypes {
		if a == known {
			return true
		}
	}
	return false
}

// ApprovalStatus is the review state of a contact.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// Valid reports whether s is pending, approved or rejected.
func (s ApprovalStatus) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// MarketArea is a geographic market a contact operates in.
type MarketArea struct {
	Name string `json:"name"`
	// Relevance of the area for this contact (0.0 to 1.0).
	Relevance float64 `json:"relevance_score"`
}

// BusinessContext holds optional facts about the contact's business.
type BusinessContext struct {
	SizeClass       string `json:"size_class,omitempty"`
	PortfolioSize   *int   `json:"portfolio_size,omitempty"`
	Specialization  string `json:"specialization,omitempty"`
	YearsInBusiness *int   `json:"years_in_business,omitempty"`
}

// Contact is a discovered business contact with its scoring metadata.
type Contact struct {
	ID       ContactID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	Company  string    `json:"company,omitempty"`
	Position string    `json:"position,omitempty"`

	AgencyType      AgencyType       `json:"agency_type"`
	MarketAreas     []MarketArea     `json:"market_areas,omitempty"`
	BusinessContext *BusinessContext `json:"business_context,omitempty"`

	// Scores are in [0,1]; nil means the extractor did not produce one.
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
	QualityScore    *float64 `json:"quality_score,omitempty"`

	LeadSource       string    `json:"lead_source,omitempty"`
	ExtractionMethod string    `json:"extraction_method,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Status          ApprovalStatus `json:"status"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
}

// Clone returns a deep copy so callers never share slices or pointers with the original.
func (c Contact) Clone() Contact {
	out := c
	if c.MarketAreas != nil {
		out.MarketAreas = append([]MarketArea(nil), c.MarketAreas...)
	}
	if c.BusinessContext != nil {
		bc := *c.BusinessContext
		bc.PortfolioSize = clonePtr(c.BusinessContext.PortfolioSize)
		bc.YearsInBusiness = clonePtr(c.BusinessContext.YearsInBusiness)
		out.BusinessContext = &bc
	}
	out.ConfidenceScore = clonePtr(c.ConfidenceScore)
	out.QualityScore = clonePtr(c.QualityScore)
	return out
}

// DisplayName falls back to the email, then the id, when the name is empty.
func (c Contact) DisplayName() string {
	switch {
	case c.Name != "":
		return c.Name
	case c.Email != "":
		return c.Email
	default:
		return string(c.ID)
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v. Handy for building contacts and filters.
func Float(v float64) *float64 { return &v }
