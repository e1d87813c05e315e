// Package retrieval implements the Retrieval Service (spec §4.7): search
// (embed a query, run a tenant-scoped similarity query, paginate, tier the
// response) and fetch (return the full snippet for an id).
package retrieval

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/hivemind-dev/hivemind/internal/hmerrors"
	"github.com/hivemind-dev/hivemind/internal/metrics"
	"github.com/hivemind-dev/hivemind/internal/store"
)

// Embedder is the subset of embedder.Embedder the Retrieval Service depends on.
type Embedder interface {
	Embed(ctx context.Context, s string) ([]float32, error)
}

// SearchRequest is the search_knowledge search-mode input (spec §6.1).
type SearchRequest struct {
	Query    string
	Category *store.Category
	Cursor   string
	Limit    int
}

// Summary is a single ranked result entry (spec §4.7 step 3).
type Summary struct {
	ID                  string
	Title               string
	Category            store.Category
	Confidence          float64
	ContributorTenantID string
	RelevanceScore      float64
}

// SearchResult is the search_knowledge search-mode output (spec §6.1).
type SearchResult struct {
	Results    []Summary
	NextCursor string
	TotalFound int
}

// FullSnippet is the search_knowledge fetch-mode output (spec §6.1).
type FullSnippet struct {
	ID       string
	Content  string
	Metadata store.ApprovedSnippet
}

// DefaultLimit bounds the page size when the caller does not specify one.
const DefaultLimit = 10

// Service is the Retrieval Service (spec §4.7).
type Service struct {
	store    store.Store
	embedder Embedder
}

// New constructs the Retrieval Service.
func New(st store.Store, emb Embedder) *Service {
	return &Service{store: st, embedder: emb}
}

// Search runs the search procedure (spec §4.7 steps 1-5).
func (s *Service) Search(ctx context.Context, tenantID string, req SearchRequest) (SearchResult, error) {
	start := time.Now()
	defer func() { metrics.SearchLatencySeconds.Observe(time.Since(start).Seconds()) }()

	if req.Query == "" {
		return SearchResult{}, hmerrors.InvalidInput("query must not be empty")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	offset, err := decodeCursor(req.Cursor)
	if err != nil {
		return SearchResult{}, hmerrors.InvalidInput("invalid cursor")
	}

	qv, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return SearchResult{}, err
	}

	scored, err := s.store.NearestApproved(ctx, pgvector.NewVector(qv), tenantID, limit, offset, nil, nil)
	if err != nil {
		return SearchResult{}, err
	}

	results := make([]Summary, 0, len(scored))
	for _, sc := range scored {
		if req.Category != nil && sc.Snippet.Category != *req.Category {
			continue
		}
		results = append(results, Summary{
			ID:                  sc.Snippet.ID,
			Title:               title(sc.Snippet.Content),
			Category:            sc.Snippet.Category,
			Confidence:          sc.Snippet.Confidence,
			ContributorTenantID: sc.Snippet.TenantID,
			RelevanceScore:      1 - sc.Distance,
		})
	}

	out := SearchResult{Results: results, TotalFound: len(results)}
	if len(scored) == limit {
		out.NextCursor = encodeCursor(offset + len(scored))
	}
	return out, nil
}

// Fetch runs the fetch procedure (spec §4.7). A missing or cross-tenant id
// returns not-found, never a distinguishable forbidden error.
func (s *Service) Fetch(ctx context.Context, tenantID, id string) (FullSnippet, error) {
	snippet, err := s.store.FetchApproved(ctx, id, tenantID)
	if err != nil {
		return FullSnippet{}, err
	}
	if snippet == nil {
		return FullSnippet{}, hmerrors.NotFound("snippet not found")
	}
	return FullSnippet{ID: snippet.ID, Content: snippet.Content, Metadata: *snippet}, nil
}

func title(content string) string {
	if len(content) <= 80 {
		return content
	}
	return content[:80]
}

func encodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("decode cursor: %w", err)
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("parse cursor: %w", err)
	}
	if offset < 0 {
		return 0, fmt.Errorf("negative cursor offset")
	}
	return offset, nil
}
