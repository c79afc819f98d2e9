package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"mwa-review/src/contracts"
	"mwa-review/src/store"
)

func seedServer() *Server {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mem := store.NewMemoryStore(
		contracts.Contact{ID: "c-1", Name: "Anna Berg", Email: "anna@relo.de", Company: "Relo GmbH", AgencyType: contracts.AgencyRelocation, ConfidenceScore: contracts.Float(0.9), Status: contracts.StatusPending, CreatedAt: base},
		contracts.Contact{ID: "c-2", Name: "Ben Kurz", Email: "ben@immo.de", Company: "Immo AG", AgencyType: contracts.AgencyRealEstate, ConfidenceScore: contracts.Float(0.4), Status: contracts.StatusApproved, CreatedAt: base.Add(time.Hour)},
		contracts.Contact{ID: "c-3", Name: "Cora Lenz", Phone: "+49 30 1234", AgencyType: contracts.AgencyRelocation, ConfidenceScore: contracts.Float(0.6), Status: contracts.StatusPending, CreatedAt: base.Add(2 * time.Hour)},
	)
	return NewServer(mem, "test", nil)
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("expected tool content")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", res.Content[0])
	return ""
}

func TestHandleListContacts(t *testing.T) {
	srv := seedServer()

	tests := []struct {
		name    string
		args    map[string]any
		wantIDs []string
		total   int
	}{
		{"all", map[string]any{}, []string{"c-1", "c-2", "c-3"}, 3},
		{"search", map[string]any{"search": "immo"}, []string{"c-2"}, 1},
		{"agency", map[string]any{"agency_type": string(contracts.AgencyRelocation)}, []string{"c-1", "c-3"}, 2},
		{"min confidence", map[string]any{"min_confidence": 0.5}, []string{"c-1", "c-3"}, 2},
		{"paged", map[string]any{"page": float64(2), "page_size": float64(2)}, []string{"c-3"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := srv.handleListContacts(context.Background(), callTool("list_contacts", tt.args))
			if err != nil {
				t.Fatalf("handleListContacts() error = %v", err)
			}
			if res.IsError {
				t.Fatalf("unexpected tool error: %s", resultText(t, res))
			}

			var out ContactListResponse
			if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if out.Total != tt.total {
				t.Errorf("Total = %d, want %d", out.Total, tt.total)
			}
			var ids []string
			for _, c := range out.Contacts {
				ids = append(ids, c.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ids = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestHandleListContacts_InvalidArguments(t *testing.T) {
	srv := seedServer()

	for name, args := range map[string]map[string]any{
		"agency":    {"agency_type": "castle"},
		"status":    {"status": "maybe"},
		"page size": {"page_size": float64(500)},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := srv.handleListContacts(context.Background(), callTool("list_contacts", args))
			if err != nil {
				t.Fatalf("handleListContacts() error = %v", err)
			}
			if !res.IsError {
				t.Error("expected a tool error")
			}
		})
	}
}

func TestHandleGetContact(t *testing.T) {
	srv := seedServer()

	res, err := srv.handleGetContact(context.Background(), callTool("get_contact", map[string]any{"id": "c-1"}))
	if err != nil || res.IsError {
		t.Fatalf("handleGetContact() = %v, %v", res, err)
	}
	var c contracts.Contact
	if err := json.Unmarshal([]byte(resultText(t, res)), &c); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if c.Name != "Anna Berg" || c.Company != "Relo GmbH" {
		t.Errorf("unexpected contact %+v", c)
	}

	res, _ = srv.handleGetContact(context.Background(), callTool("get_contact", map[string]any{"id": "missing"}))
	if !res.IsError || !strings.Contains(resultText(t, res), "not found") {
		t.Errorf("expected not found tool error, got %q", resultText(t, res))
	}

	res, _ = srv.handleGetContact(context.Background(), callTool("get_contact", map[string]any{}))
	if !res.IsError {
		t.Error("expected error for missing id")
	}
}

func TestHandleContactScoring(t *testing.T) {
	srv := seedServer()

	res, err := srv.handleContactScoring(context.Background(), callTool("contact_scoring", map[string]any{"id": "c-1"}))
	if err != nil || res.IsError {
		t.Fatalf("handleContactScoring() = %v, %v", res, err)
	}
	var scoring contracts.ScoringResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &scoring); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if scoring.OverallScore <= 0 || scoring.OverallScore > 1 {
		t.Errorf("OverallScore = %v, want (0,1]", scoring.OverallScore)
	}
	if len(scoring.Breakdown) == 0 {
		t.Error("expected a breakdown")
	}
}

func TestHandleReviewQueue(t *testing.T) {
	srv := seedServer()

	res, err := srv.handleReviewQueue(context.Background(), callTool("review_queue", map[string]any{}))
	if err != nil || res.IsError {
		t.Fatalf("handleReviewQueue() = %v, %v", res, err)
	}
	var q ReviewQueue
	if err := json.Unmarshal([]byte(resultText(t, res)), &q); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	// approved c-2 is not pending
	if q.Scanned != 2 {
		t.Errorf("Scanned = %d, want 2", q.Scanned)
	}
	if len(q.Ready) != 1 || q.Ready[0].ID != "c-1" {
		t.Errorf("Ready = %+v, want c-1", q.Ready)
	}
	if len(q.Review) != 1 || q.Review[0].ID != "c-3" {
		t.Errorf("Review = %+v, want c-3", q.Review)
	}
}
