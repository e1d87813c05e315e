// Package quarantine exposes the Quarantine Queue operations a reviewer
// drives: claiming the next batch of unreviewed contributions under
// at-most-once semantics (spec §4.6).
package quarantine

import (
	"context"

	"github.com/hivemind-dev/hivemind/internal/hmerrors"
	"github.com/hivemind-dev/hivemind/internal/metrics"
	"github.com/hivemind-dev/hivemind/internal/store"
)

// DefaultBatchSize is the number of pending rows fetch_next_pending claims
// when the reviewer does not specify one (spec §6.3).
const DefaultBatchSize = 5

// MaxBatchSize bounds how many rows a single claim may lock at once, so one
// reviewer session cannot starve every other reviewer of work.
const MaxBatchSize = 25

// Queue is the Quarantine Queue (spec §4.6).
type Queue struct {
	store store.Store
}

// New constructs the Queue.
func New(st store.Store) *Queue {
	return &Queue{store: st}
}

// Claim locks up to batchSize unclaimed pending rows for tenantID, FIFO by
// submission time. The returned Releaser must be released by the caller —
// Release(nil) commits the claim (rows stay locked out of other claims
// only for the duration of review, not permanently), Release(err) aborts
// it and makes the rows visible to the next claimant immediately.
func (q *Queue) Claim(ctx context.Context, tenantID string, batchSize int) ([]store.PendingContribution, store.Releaser, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}

	rows, releaser, err := q.store.FetchPending(ctx, tenantID, batchSize, true)
	if err != nil {
		return nil, nil, err
	}
	metrics.QuarantineDepth.WithLabelValues(tenantID).Set(float64(len(rows)))
	return rows, releaser, nil
}

// ClaimOne locks a single pending row by id for review, used by the
// approve/reject/flag_sensitive reviewer operations (spec §4.5, §6.3).
func (q *Queue) ClaimOne(ctx context.Context, tenantID, id string) (store.PendingContribution, store.Releaser, error) {
	row, releaser, err := q.store.FetchPendingByID(ctx, tenantID, id)
	if err != nil {
		return store.PendingContribution{}, nil, err
	}
	if row.ID == "" {
		return store.PendingContribution{}, nil, hmerrors.NotFound("pending contribution not found")
	}
	return row, releaser, nil
}
