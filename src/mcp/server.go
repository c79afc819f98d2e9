package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"mwa-review/src/api"
	"mwa-review/src/contracts"
	"mwa-review/src/logger"
)

// maxQueueScan bounds how many pending contacts review_queue reads.
const maxQueueScan = 500

const queuePageSize = 100

// Server is the MCP server for contact review.
type Server struct {
	mcpServer *server.MCPServer
	api       contracts.ContactAPI
	log       logger.Logger
}

// NewServer creates a new MCP server over the contact API. Every tool is read-only.
func NewServer(contactAPI contracts.ContactAPI, version string, log logger.Logger) *Server {
	s := server.NewMCPServer(
		"mwa-review",
		version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		api:       contactAPI,
		log:       logger.OrSilent(log),
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	agencies := make([]string, len(contracts.AgencyTypes))
	for i, a := range contracts.AgencyTypes {
		agencies[i] = string(a)
	}

	listTool := mcp.NewTool("list_contacts",
		mcp.WithDescription("List discovered contacts in backend order. Filters combine with AND. Returns compact summaries; use get_contact for every field."),
		mcp.WithString("search",
			mcp.Description("Case-insensitive substring over name, email, phone and company"),
		),
		mcp.WithString("agency_type",
			mcp.Description("Only contacts of this agency type"),
			mcp.Enum(agencies...),
		),
		mcp.WithString("status",
			mcp.Description("Only contacts with this approval status"),
			mcp.Enum(string(contracts.StatusPending), string(contracts.StatusApproved), string(contracts.StatusRejected)),
		),
		mcp.WithNumber("min_confidence",
			mcp.Description("Minimum confidence score (0.0 to 1.0)"),
		),
		mcp.WithNumber("min_quality",
			mcp.Description("Minimum quality score (0.0 to 1.0)"),
		),
		mcp.WithNumber("page",
			mcp.Description("1-based page (default: 1)"),
		),
		mcp.WithNumber("page_size",
			mcp.Description("Contacts per page (default: 20, max: 100)"),
		),
	)

	getTool := mcp.NewTool("get_contact",
		mcp.WithDescription("Get every field of one contact, including market areas and business context."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Contact id from list_contacts"),
		),
	)

	scoringTool := mcp.NewTool("contact_scoring",
		mcp.WithDescription("Get the scoring breakdown and improvement recommendations of one contact."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Contact id from list_contacts"),
		),
	)

	queueTool := mcp.NewTool("review_queue",
		mcp.WithDescription("Split pending contacts into ready_to_verify (confident and reachable), needs_review and likely_reject. Use it to decide which contacts a human should look at first."),
		mcp.WithNumber("limit",
			mcp.Description("Max contacts in ready_to_verify (default: 15); the other tiers scale with it"),
		),
	)

	s.mcpServer.AddTool(listTool, s.handleListContacts)
	s.mcpServer.AddTool(getTool, s.handleGetContact)
	s.mcpServer.AddTool(scoringTool, s.handleContactScoring)
	s.mcpServer.AddTool(queueTool, s.handleReviewQueue)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleListContacts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := contracts.ListQuery{
		Search:     request.GetString("search", ""),
		AgencyType: contracts.AgencyType(request.GetString("agency_type", "")),
		Status:     contracts.ApprovalStatus(request.GetString("status", "")),
		Page:       request.GetInt("page", 1),
		PageSize:   request.GetInt("page_size", 20),
	}
	if q.AgencyType != "" && !q.AgencyType.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown agency_type %q", q.AgencyType)), nil
	}
	if q.Status != "" && !q.Status.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", q.Status)), nil
	}
	if v := request.GetFloat("min_confidence", -1); v >= 0 {
		q.MinConfidence = &v
	}
	if v := request.GetFloat("min_quality", -1); v >= 0 {
		q.MinQuality = &v
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		return mcp.NewToolResultError("page_size must be between 1 and 100"), nil
	}

	res, err := s.api.ListContacts(ctx, q)
	if err != nil {
		return s.toolError("list contacts", err), nil
	}

	out := ContactListResponse{
		Total:    res.Total,
		Page:     q.Page,
		PageSize: q.PageSize,
		Contacts: make([]ContactSummary, 0, len(res.Contacts)),
	}
	for _, c := range res.Contacts {
		out.Contacts = append(out.Contacts, summarizeContact(c))
	}
	return jsonResult(out)
}

func (s *Server) handleGetContact(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	c, err := s.api.GetContact(ctx, contracts.ContactID(id))
	if err != nil {
		return s.toolError("get contact", err), nil
	}
	return jsonResult(sanitizeContact(*c))
}

func (s *Server) handleContactScoring(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	res, err := s.api.GetScoring(ctx, contracts.ContactID(id))
	if err != nil {
		return s.toolError("get scoring", err), nil
	}
	return jsonResult(res)
}

func (s *Server) handleReviewQueue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", DefaultReadyLimit)

	var pending []contracts.Contact
	for page := 1; len(pending) < maxQueueScan; page++ {
		res, err := s.api.ListContacts(ctx, contracts.ListQuery{
			Status:   contracts.StatusPending,
			Page:     page,
			PageSize: queuePageSize,
		})
		if err != nil {
			return s.toolError("list pending contacts", err), nil
		}
		pending = append(pending, res.Contacts...)
		if len(res.Contacts) < queuePageSize || len(pending) >= res.Total {
			break
		}
	}
	if len(pending) > maxQueueScan {
		pending = pending[:maxQueueScan]
	}

	return jsonResult(TierContacts(pending, limit))
}

// toolError turns a backend failure into a tool error result. Tool errors go back to the
// model as content; only protocol failures are returned as Go errors.
func (s *Server) toolError(op string, err error) *mcp.CallToolResult {
	s.log.Warn("tool call failed", "op", op, "error", err)
	if errors.Is(err, api.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: contact not found", op))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", op, err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
