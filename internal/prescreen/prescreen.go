// Package prescreen implements Pre-screen (spec §4.8): the advisory
// similarity lookup and quality index a reviewer sees when a pending
// contribution is opened for decision. Neither output blocks approval.
package prescreen

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"github.com/hivemind-dev/hivemind/internal/store"
)

// Embedder is the subset of embedder.Embedder Pre-screen depends on.
type Embedder interface {
	Embed(ctx context.Context, s string) ([]float32, error)
}

// distanceCeiling and neighbourLimit are pinned by spec §4.8.
const (
	distanceCeiling = 0.35
	neighbourLimit  = 3
	duplicateSimPct = 80
)

// Similar is one near-neighbour entry in the similarity lookup (spec §4.8).
type Similar struct {
	ID                string
	Title             string
	Category          store.Category
	SimilarityPercent float64
	TenantID          string
	LikelyDuplicate   bool
}

// Result is the prescreen(id) output (spec §6.1).
type Result struct {
	QualityIndex int
	Badge        string // "High" | "Medium" | "Low"
	Similar      []Similar
}

// Service is Pre-screen (spec §4.8).
type Service struct {
	store    store.Store
	embedder Embedder
}

// New constructs Pre-screen.
func New(st store.Store, emb Embedder) *Service {
	return &Service{store: st, embedder: emb}
}

// Run produces the similarity lookup and quality index for a pending
// contribution (spec §4.8).
func (s *Service) Run(ctx context.Context, pending store.PendingContribution) (Result, error) {
	qv, err := s.embedder.Embed(ctx, pending.Content)
	if err != nil {
		return Result{}, err
	}

	ceiling := distanceCeiling
	scored, err := s.store.NearestApproved(ctx, pgvector.NewVector(qv), pending.TenantID, neighbourLimit, 0, nil, &ceiling)
	if err != nil {
		return Result{}, err
	}

	similar := make([]Similar, 0, len(scored))
	for _, sc := range scored {
		pct := (1 - sc.Distance) * 100
		similar = append(similar, Similar{
			ID:                sc.Snippet.ID,
			Title:             title(sc.Snippet.Content),
			Category:          sc.Snippet.Category,
			SimilarityPercent: pct,
			TenantID:          sc.Snippet.TenantID,
			LikelyDuplicate:   pct >= duplicateSimPct,
		})
	}

	index, badge := qualityIndex(pending)

	return Result{QualityIndex: index, Badge: badge, Similar: similar}, nil
}

// qualityIndex is the deterministic synthesis described in spec §4.8.
func qualityIndex(pending store.PendingContribution) (int, string) {
	base := int(pending.Confidence*100 + 0.5)

	if pending.SensitiveFlag {
		base -= 30
	}
	length := len(pending.Content)
	if length < 50 {
		base -= 20
	} else if length > 200 {
		base += 10
	}

	if base < 0 {
		base = 0
	}
	if base > 100 {
		base = 100
	}

	badge := "Low"
	if base >= 80 {
		badge = "High"
	} else if base >= 50 {
		badge = "Medium"
	}

	return base, badge
}

func title(content string) string {
	if len(content) <= 80 {
		return content
	}
	return content[:80]
}
