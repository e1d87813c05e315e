// Package approval implements the Approval Service (spec §4.5): the
// reviewer-facing operations that promote a PendingContribution to an
// ApprovedSnippet, reject it outright, or flag it sensitive without
// promoting it.
package approval

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"github.com/hivemind-dev/hivemind/internal/hmerrors"
	"github.com/hivemind-dev/hivemind/internal/metrics"
	"github.com/hivemind-dev/hivemind/internal/store"
)

// Embedder is the subset of embedder.Embedder the Approval Service depends on.
type Embedder interface {
	Embed(ctx context.Context, s string) ([]float32, error)
	ModelID() string
}

// ApproveRequest is the reviewer's approve decision (spec §6.3).
type ApproveRequest struct {
	PendingID string
	TenantID  string
	IsPublic  bool
	// Category, if set, overrides the submitter's category; OriginalCategory
	// always preserves what was submitted (spec §9 Open Question 1).
	Category *store.Category
}

// Service is the Approval Service (spec §4.5).
type Service struct {
	store    store.Store
	embedder Embedder
}

// New constructs the Approval Service.
func New(st store.Store, emb Embedder) *Service {
	return &Service{store: st, embedder: emb}
}

// claimForDecision fetches the pending row a reviewer decision targets. A
// missing row means another reviewer already resolved it first — spec §4.5
// step b and the §7 taxonomy call for a gone error here, not not-found.
func claimForDecision(ctx context.Context, st store.Store, tenantID, id string) (store.PendingContribution, store.Releaser, error) {
	pending, releaser, err := st.FetchPendingByID(ctx, tenantID, id)
	if err != nil {
		if he, ok := hmerrors.As(err); ok && he.Kind == hmerrors.KindNotFound {
			return store.PendingContribution{}, nil, hmerrors.Gone("pending contribution was already resolved by another reviewer")
		}
		return store.PendingContribution{}, nil, err
	}
	return pending, releaser, nil
}

// Approve promotes a pending contribution: embeds its content, inserts an
// ApprovedSnippet, deletes the pending row, and emits a notify event, all
// within one transaction (spec §4.5 steps a-g).
func (s *Service) Approve(ctx context.Context, req ApproveRequest) (string, error) {
	pending, releaser, err := claimForDecision(ctx, s.store, req.TenantID, req.PendingID)
	if err != nil {
		return "", err
	}
	defer releaser.Release(nil)

	vec, err := s.embedder.Embed(ctx, pending.Content)
	if err != nil {
		releaser.Release(err)
		return "", err
	}

	category := pending.Category
	if req.Category != nil {
		category = *req.Category
	}

	snippet := &store.ApprovedSnippet{
		TenantID:         pending.TenantID,
		AgentID:          pending.AgentID,
		RunID:            pending.RunID,
		Content:          pending.Content,
		Category:         category,
		OriginalCategory: pending.Category,
		Confidence:       pending.Confidence,
		Framework:        pending.Framework,
		Language:         pending.Language,
		Tags:             pending.Tags,
		ContentHash:      pending.ContentHash,
		IsPublic:         req.IsPublic,
		Embedding:        pgvector.NewVector(vec),
	}

	id, err := s.store.InsertApproved(ctx, snippet, pending.ID)
	if err != nil {
		return "", err
	}
	metrics.ApprovalsTotal.WithLabelValues(pending.TenantID).Inc()
	return id, nil
}

// Reject deletes a pending contribution outright with no promotion (spec §4.5).
func (s *Service) Reject(ctx context.Context, tenantID, pendingID string) error {
	pending, releaser, err := claimForDecision(ctx, s.store, tenantID, pendingID)
	if err != nil {
		return err
	}
	defer releaser.Release(nil)

	return s.store.DeletePending(ctx, pending.ID)
}

// FlagSensitive toggles sensitive_flag on a pending row; the row remains in
// quarantine rather than being deleted (spec §4.5, §3.1).
func (s *Service) FlagSensitive(ctx context.Context, tenantID, pendingID string) error {
	pending, releaser, err := claimForDecision(ctx, s.store, tenantID, pendingID)
	if err != nil {
		return err
	}
	defer releaser.Release(nil)

	return s.store.FlagPendingSensitive(ctx, tenantID, pending.ID)
}

