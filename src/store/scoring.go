package store

import (
	"math"

	"mwa-review/src/contracts"
)

// Scoring weights for the overall score. They sum to 1.
const (
	weightConfidence   = 0.30
	weightQuality      = 0.30
	weightCompleteness = 0.20
	weightMarket       = 0.10
	weightAgency       = 0.10
)

// agencyFit ranks how relevant each agency type is for housing placement.
var agencyFit = map[contracts.AgencyType]float64{
	contracts.AgencyRelocation:         1.0,
	contracts.AgencyCorporateHousing:   1.0,
	contracts.AgencyRealEstate:         0.8,
	contracts.AgencyPropertyManagement: 0.8,
	contracts.AgencyHousingCooperative: 0.6,
	contracts.AgencyPrivateLandlord:    0.5,
	contracts.AgencyOther:              0.2,
}

// ScoreContact computes the scoring breakdown for c. Missing scores count as zero.
func ScoreContact(c contracts.Contact) *contracts.ScoringResult {
	confidence := scoreOrZero(c.ConfidenceScore)
	quality := scoreOrZero(c.QualityScore)
	completeness := completeness(c)
	market := 0.0
	for _, area := range c.MarketAreas {
		market = math.Max(market, clamp01(area.Relevance))
	}
	agency := agencyFit[c.AgencyType]

	overall := confidence*weightConfidence +
		quality*weightQuality +
		completeness*weightCompleteness +
		market*weightMarket +
		agency*weightAgency

	return &contracts.ScoringResult{
		OverallScore: round2(overall),
		Breakdown: map[string]float64{
			"confidence":       round2(confidence),
			"quality":          round2(quality),
			"completeness":     round2(completeness),
			"market_relevance": round2(market),
			"agency_fit":       round2(agency),
		},
		Recommendations: recommendations(c, confidence, quality),
	}
}

func completeness(c contracts.Contact) float64 {
	fields := []string{c.Name, c.Email, c.Phone, c.Company, c.Position}
	present := 0
	for _, f := range fields {
		if f != "" {
			present++
		}
	}
	return float64(present) / float64(len(fields))
}

func recommendations(c contracts.Contact, confidence, quality float64) []string {
	recs := []string{}
	if c.Email == "" {
		recs = append(recs, "Find an email address for this contact")
	}
	if c.Phone == "" {
		recs = append(recs, "Add a phone number")
	}
	if c.ConfidenceScore == nil || confidence < 0.5 {
		recs = append(recs, "Verify the contact details manually")
	}
	if c.QualityScore != nil && quality < 0.5 {
		recs = append(recs, "Re-run extraction from a better source")
	}
	if len(c.MarketAreas) == 0 {
		recs = append(recs, "Assign at least one market area")
	}
	if c.AgencyType == "" || c.AgencyType == contracts.AgencyOther {
		recs = append(recs, "Classify the agency type")
	}
	return recs
}

func scoreOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return clamp01(*p)
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
