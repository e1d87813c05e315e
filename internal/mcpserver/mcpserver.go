// Package mcpserver wires the MCP Tool Surface (spec §4.11, §6.1): four
// tools (add_knowledge, search_knowledge, list_knowledge, delete_knowledge)
// backed by the Ingest, Retrieval, and Store services, following the same
// mcpsdk.AddTool / StreamableHTTPHandler shape the teacher uses for its
// agent-facing tools in internal/mcp/mcp_handler.go.
package mcpserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hivemind-dev/hivemind/internal/auth"
	"github.com/hivemind-dev/hivemind/internal/hmerrors"
	"github.com/hivemind-dev/hivemind/internal/ingest"
	"github.com/hivemind-dev/hivemind/internal/logging"
	"github.com/hivemind-dev/hivemind/internal/retrieval"
	"github.com/hivemind-dev/hivemind/internal/store"
)

// AddKnowledgeInput is add_knowledge's argument shape (spec §6.1).
type AddKnowledgeInput struct {
	Content    string   `json:"content" jsonschema:"The sanitised-at-source contribution text"`
	Category   string   `json:"category" jsonschema:"One of the closed category set"`
	Confidence float64  `json:"confidence" jsonschema:"Caller's confidence in this contribution, 0..1"`
	Framework  string   `json:"framework,omitempty"`
	Language   string   `json:"language,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// AddKnowledgeOutput is add_knowledge's result shape on success (spec §6.1).
type AddKnowledgeOutput struct {
	ContributionID string `json:"contribution_id"`
	Status         string `json:"status"`
	Category       string `json:"category"`
	Message        string `json:"message"`
}

// SearchKnowledgeInput covers both search and fetch mode (spec §6.1): a
// non-empty ID with FullContent set selects fetch mode.
type SearchKnowledgeInput struct {
	Query       string `json:"query,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Category    string `json:"category,omitempty"`
	Cursor      string `json:"cursor,omitempty"`
	ID          string `json:"id,omitempty"`
	FullContent bool   `json:"full_content,omitempty"`
}

// SearchResultSummary mirrors retrieval.Summary for the wire shape.
type SearchResultSummary struct {
	ID                  string  `json:"id"`
	Title               string  `json:"title"`
	Category            string  `json:"category"`
	Confidence          float64 `json:"confidence"`
	ContributorTenantID string  `json:"contributor_tenant_id"`
	RelevanceScore      float64 `json:"relevance_score"`
}

// SearchKnowledgeOutput covers both modes; only the fields relevant to the
// mode that ran are populated (spec §6.1).
type SearchKnowledgeOutput struct {
	Results    []SearchResultSummary `json:"results,omitempty"`
	NextCursor string                `json:"next_cursor,omitempty"`
	TotalFound int                   `json:"total_found,omitempty"`

	ID       string         `json:"id,omitempty"`
	Content  string         `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ListKnowledgeInput is list_knowledge's argument shape (spec §6.1).
type ListKnowledgeInput struct {
	Cursor int `json:"cursor,omitempty"`
	Limit  int `json:"limit,omitempty"`
}

// ListItem is a single row in list_knowledge's result (spec §6.1).
type ListItem struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Category  string `json:"category"`
	EventTime string `json:"submitted_at_or_approved_at"`
	Title     string `json:"title"`
}

// ListKnowledgeOutput is list_knowledge's result shape (spec §6.1).
type ListKnowledgeOutput struct {
	Items      []ListItem `json:"items"`
	NextCursor int        `json:"next_cursor,omitempty"`
}

// DeleteKnowledgeInput is delete_knowledge's argument shape (spec §6.1).
type DeleteKnowledgeInput struct {
	ID string `json:"id"`
}

// DeleteKnowledgeOutput is delete_knowledge's result shape (spec §6.1).
type DeleteKnowledgeOutput struct {
	Deleted bool `json:"deleted"`
}

const defaultListLimit = 20

// Handler implements the MCP Tool Surface and an http.Handler wrapping it.
type Handler struct {
	ingest      *ingest.Service
	retrieval   *retrieval.Service
	store       store.Store
	authr       auth.Authenticator
	httpHandler *mcpsdk.StreamableHTTPHandler
	server      *mcpsdk.Server
}

// New constructs the MCP Tool Surface and registers its four tools.
func New(version string, ing *ingest.Service, ret *retrieval.Service, st store.Store, authr auth.Authenticator) *Handler {
	h := &Handler{ingest: ing, retrieval: ret, store: st, authr: authr}

	impl := &mcpsdk.Implementation{Name: "hivemind", Version: version}
	server := mcpsdk.NewServer(impl, nil)
	h.server = server

	mcpsdk.AddTool[AddKnowledgeInput, AddKnowledgeOutput](server, &mcpsdk.Tool{
		Name:        "add_knowledge",
		Description: "Submit a contribution to the shared knowledge commons for review",
	}, h.handleAddKnowledge)

	mcpsdk.AddTool[SearchKnowledgeInput, SearchKnowledgeOutput](server, &mcpsdk.Tool{
		Name:        "search_knowledge",
		Description: "Search approved knowledge by semantic similarity, or fetch a single snippet by id",
	}, h.handleSearchKnowledge)

	mcpsdk.AddTool[ListKnowledgeInput, ListKnowledgeOutput](server, &mcpsdk.Tool{
		Name:        "list_knowledge",
		Description: "List this agent's own pending and approved contributions",
	}, h.handleListKnowledge)

	mcpsdk.AddTool[DeleteKnowledgeInput, DeleteKnowledgeOutput](server, &mcpsdk.Tool{
		Name:        "delete_knowledge",
		Description: "Soft-delete an approved snippet owned by this agent",
	}, h.handleDeleteKnowledge)

	h.httpHandler = mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return server
	}, nil)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, err := h.authr.Authenticate(r.Context(), r.Header)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	r = r.WithContext(auth.Into(r.Context(), sess))
	h.httpHandler.ServeHTTP(w, r)
}

func principalFrom(ctx context.Context) (auth.Principal, error) {
	sess, ok := auth.From(ctx)
	if !ok {
		return auth.Principal{}, hmerrors.Auth("no credential attached to this request")
	}
	return sess.Principal(), nil
}

// errorResult renders err as a tool error. KindInternal errors never reach
// the caller verbatim (spec §7): the underlying error is logged against a
// correlation ID, and only that ID is surfaced.
func errorResult(ctx context.Context, err error) *mcpsdk.CallToolResult {
	if he, ok := hmerrors.As(err); ok && he.Kind == hmerrors.KindInternal {
		wrapped := hmerrors.Internal(uuid.NewString(), he.Unwrap())
		logging.From(ctx).WithName("mcp").Error(wrapped.Unwrap(), "internal error", "correlation_id", wrapped.CorrelationID)
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: wrapped.Error()}},
			IsError: true,
		}
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

func (h *Handler) handleAddKnowledge(ctx context.Context, req *mcpsdk.CallToolRequest, input AddKnowledgeInput) (*mcpsdk.CallToolResult, AddKnowledgeOutput, error) {
	log := logging.From(ctx).WithName("mcp").WithValues("tool", "add_knowledge")

	principal, err := principalFrom(ctx)
	if err != nil {
		return errorResult(ctx, err), AddKnowledgeOutput{}, nil
	}

	var framework, language *string
	if input.Framework != "" {
		framework = &input.Framework
	}
	if input.Language != "" {
		language = &input.Language
	}

	res, err := h.ingest.Submit(ctx, principal, ingest.Request{
		Content:    input.Content,
		Category:   store.Category(input.Category),
		Confidence: input.Confidence,
		Framework:  framework,
		Language:   language,
		Tags:       input.Tags,
	})
	if err != nil {
		return errorResult(ctx, err), AddKnowledgeOutput{}, nil
	}

	log.Info("accepted contribution", "contribution_id", res.ID)

	output := AddKnowledgeOutput{
		ContributionID: res.ID,
		Status:         res.Status,
		Category:       input.Category,
		Message:        "Contribution queued for review",
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: fmt.Sprintf("queued contribution %s for review", res.ID)}},
	}, output, nil
}

func (h *Handler) handleSearchKnowledge(ctx context.Context, req *mcpsdk.CallToolRequest, input SearchKnowledgeInput) (*mcpsdk.CallToolResult, SearchKnowledgeOutput, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return errorResult(ctx, err), SearchKnowledgeOutput{}, nil
	}

	if input.ID != "" && input.FullContent {
		full, err := h.retrieval.Fetch(ctx, principal.TenantID, input.ID)
		if err != nil {
			return errorResult(ctx, err), SearchKnowledgeOutput{}, nil
		}
		output := SearchKnowledgeOutput{
			ID:      full.ID,
			Content: full.Content,
			Metadata: map[string]any{
				"category":    full.Metadata.Category,
				"tenant_id":   full.Metadata.TenantID,
				"is_public":   full.Metadata.IsPublic,
				"confidence":  full.Metadata.Confidence,
				"approved_at": full.Metadata.ApprovedAt,
			},
		}
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: full.Content}},
		}, output, nil
	}

	var category *store.Category
	if input.Category != "" {
		c := store.Category(input.Category)
		category = &c
	}

	res, err := h.retrieval.Search(ctx, principal.TenantID, retrieval.SearchRequest{
		Query:    input.Query,
		Category: category,
		Cursor:   input.Cursor,
		Limit:    input.Limit,
	})
	if err != nil {
		return errorResult(ctx, err), SearchKnowledgeOutput{}, nil
	}

	results := make([]SearchResultSummary, 0, len(res.Results))
	for _, r := range res.Results {
		results = append(results, SearchResultSummary{
			ID:                  r.ID,
			Title:               r.Title,
			Category:            string(r.Category),
			Confidence:          r.Confidence,
			ContributorTenantID: r.ContributorTenantID,
			RelevanceScore:      r.RelevanceScore,
		})
	}

	output := SearchKnowledgeOutput{Results: results, NextCursor: res.NextCursor, TotalFound: res.TotalFound}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: fmt.Sprintf("%d result(s) found", res.TotalFound)}},
	}, output, nil
}

func (h *Handler) handleListKnowledge(ctx context.Context, req *mcpsdk.CallToolRequest, input ListKnowledgeInput) (*mcpsdk.CallToolResult, ListKnowledgeOutput, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return errorResult(ctx, err), ListKnowledgeOutput{}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, nextCursor, err := h.store.ListByAgent(ctx, principal.TenantID, principal.AgentID, input.Cursor, limit)
	if err != nil {
		return errorResult(ctx, err), ListKnowledgeOutput{}, nil
	}

	items := make([]ListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, ListItem{
			ID:        row.ID,
			Status:    row.Status,
			Category:  string(row.Category),
			EventTime: row.EventTime.Format("2006-01-02T15:04:05Z07:00"),
			Title:     row.Title,
		})
	}

	output := ListKnowledgeOutput{Items: items}
	if len(rows) == limit {
		output.NextCursor = nextCursor
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: fmt.Sprintf("%d item(s)", len(items))}},
	}, output, nil
}

func (h *Handler) handleDeleteKnowledge(ctx context.Context, req *mcpsdk.CallToolRequest, input DeleteKnowledgeInput) (*mcpsdk.CallToolResult, DeleteKnowledgeOutput, error) {
	principal, err := principalFrom(ctx)
	if err != nil {
		return errorResult(ctx, err), DeleteKnowledgeOutput{}, nil
	}

	deleted, err := h.store.MarkDeleted(ctx, input.ID, principal.TenantID, principal.AgentID)
	if err != nil {
		return errorResult(ctx, err), DeleteKnowledgeOutput{}, nil
	}
	if !deleted {
		return errorResult(ctx, hmerrors.NotFound("snippet not found")), DeleteKnowledgeOutput{}, nil
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "deleted"}},
	}, DeleteKnowledgeOutput{Deleted: true}, nil
}
