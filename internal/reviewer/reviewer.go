// Package reviewer composes the Quarantine Queue, Approval Service, and
// Pre-screen into the operator-facing surface described in spec §6.3:
// fetch_next_pending, approve, reject, flag_sensitive, prescreen, stats.
package reviewer

import (
	"context"

	"github.com/hivemind-dev/hivemind/internal/approval"
	"github.com/hivemind-dev/hivemind/internal/prescreen"
	"github.com/hivemind-dev/hivemind/internal/quarantine"
	"github.com/hivemind-dev/hivemind/internal/store"
)

// Service is the reviewer-facing operations surface (spec §6.3).
type Service struct {
	queue     *quarantine.Queue
	approval  *approval.Service
	prescreen *prescreen.Service
	store     store.Store
}

// New constructs the reviewer operations surface.
func New(queue *quarantine.Queue, appr *approval.Service, pre *prescreen.Service, st store.Store) *Service {
	return &Service{queue: queue, approval: appr, prescreen: pre, store: st}
}

// FetchNextPending claims a batch of unreviewed contributions (spec §4.6, §6.3).
// The caller must Release the returned Releaser once the batch has been
// reviewed (or abandoned), to return unclaimed rows to the queue.
func (s *Service) FetchNextPending(ctx context.Context, tenantID string, batchSize int) ([]store.PendingContribution, store.Releaser, error) {
	return s.queue.Claim(ctx, tenantID, batchSize)
}

// Approve promotes a pending contribution to the approved set (spec §6.3).
func (s *Service) Approve(ctx context.Context, tenantID, id string, category *store.Category, isPublic bool) (string, error) {
	return s.approval.Approve(ctx, approval.ApproveRequest{
		PendingID: id,
		TenantID:  tenantID,
		IsPublic:  isPublic,
		Category:  category,
	})
}

// Reject deletes a pending contribution outright (spec §6.3).
func (s *Service) Reject(ctx context.Context, tenantID, id string) error {
	return s.approval.Reject(ctx, tenantID, id)
}

// FlagSensitive marks a pending contribution sensitive without deleting it (spec §6.3).
func (s *Service) FlagSensitive(ctx context.Context, tenantID, id string) error {
	return s.approval.FlagSensitive(ctx, tenantID, id)
}

// Prescreen returns the advisory quality index and near-duplicate lookup
// for a pending contribution (spec §4.8, §6.3).
func (s *Service) Prescreen(ctx context.Context, tenantID, id string) (prescreen.Result, error) {
	row, releaser, err := s.queue.ClaimOne(ctx, tenantID, id)
	if err != nil {
		return prescreen.Result{}, err
	}
	defer releaser.Release(nil)

	return s.prescreen.Run(ctx, row)
}

// Stats returns aggregate counters for a tenant's gamification surface (spec §6.3).
func (s *Service) Stats(ctx context.Context, tenantID string) (store.Stats, error) {
	return s.store.Stats(ctx, tenantID)
}
