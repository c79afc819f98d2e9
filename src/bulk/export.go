package bulk

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"mwa-review/src/contracts"
)

// Exporter writes contacts somewhere and returns where.
type Exporter interface {
	Export(contacts []contracts.Contact) (string, error)
}

// CSVExporter writes one CSV file per export into Dir.
type CSVExporter struct {
	Dir string
	// Now is overridable for tests.
	Now func() time.Time
}

var csvHeader = []string{
	"id", "name", "email", "phone", "company", "position", "agency_type", "status",
	"confidence_score", "quality_score", "lead_source", "market_areas", "created_at",
}

// Export writes contacts to mwa-contacts-<timestamp>-<id>.csv and returns the path.
func (e CSVExporter) Export(contacts []contracts.Contact) (string, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	dir := e.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	name := fmt.Sprintf("mwa-contacts-%s-%s.csv", now().UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, c := range contacts {
		if err := writer.Write(csvRow(c)); err != nil {
			return "", fmt.Errorf("write contact %s: %w", c.ID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("flush export: %w", err)
	}
	return path, nil
}

func csvRow(c contracts.Contact) []string {
	areas := make([]string, 0, len(c.MarketAreas))
	for _, a := range c.MarketAreas {
		areas = append(areas, a.Name)
	}
	created := ""
	if !c.CreatedAt.IsZero() {
		created = c.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		string(c.ID),
		c.Name,
		c.Email,
		c.Phone,
		c.Company,
		c.Position,
		string(c.AgencyType),
		string(c.Status),
		formatScore(c.ConfidenceScore),
		formatScore(c.QualityScore),
		c.LeadSource,
		strings.Join(areas, "; "),
		created,
	}
}

func formatScore(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
