package store

import (
	"context"

	"github.com/pgvector/pgvector-go"
)

// ApprovalPayload is the notification emitted on approval (spec §4.5 step g,
// §4.10, §6.2). It is JSON-encoded for the Postgres NOTIFY payload and for
// the SSE wire format.
type ApprovalPayload struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenant_id"`
	Category Category `json:"category"`
	IsPublic bool     `json:"is_public"`
	Title    string   `json:"title"`
}

// Stats is the aggregate counters surfaced by the reviewer `stats` operation (spec §6.3).
type Stats struct {
	Contributions       int64
	RetrievalsByOthers   int64
	HelpfulCount         int64
	NotHelpfulCount      int64
}

// Store is the durable, transactional authority described in spec §4.3.
// All cross-component communication goes through it or through the channel
// it backs (Notifier). Every method accepts a context whose deadline must be
// respected; a deadline miss returns an hmerrors.Busy error.
type Store interface {
	InsertPending(ctx context.Context, p *PendingContribution) (string, error)

	// FetchPending returns up to limit unclaimed Pending rows for tenantID,
	// FIFO by SubmittedAt. When claim is true the rows are locked
	// (SELECT ... FOR UPDATE SKIP LOCKED) for the duration of the
	// transaction embedded in ctx; the caller must commit or roll back via
	// the returned release function to free the lock (spec §4.6).
	FetchPending(ctx context.Context, tenantID string, limit int, claim bool) ([]PendingContribution, Releaser, error)

	// FetchPendingByID claims a single pending row by id, scoped to
	// tenantID, under the same FOR UPDATE SKIP LOCKED semantics as
	// FetchPending (spec §4.5, §4.6). Returns hmerrors.NotFound if the row
	// does not exist, is not owned by tenantID, or is concurrently claimed.
	FetchPendingByID(ctx context.Context, tenantID, id string) (PendingContribution, Releaser, error)

	DeletePending(ctx context.Context, id string) error

	// FlagPendingSensitive sets sensitive_flag = true on a pending row owned
	// by tenantID; the row is not deleted and remains in quarantine (spec
	// §4.5, §3.1). Returns hmerrors.NotFound if the row does not exist or is
	// not owned by tenantID.
	FlagPendingSensitive(ctx context.Context, tenantID, id string) error

	// InsertApproved inserts the snippet and, within the same transaction,
	// emits a notify event and deletes the originating pending row — an
	// atomic promotion (spec §4.5). On hash-uniqueness violation it returns
	// an hmerrors.Duplicate error and performs no mutation.
	InsertApproved(ctx context.Context, snippet *ApprovedSnippet, pendingID string) (string, error)

	// MarkDeleted stamps DeletedAt on an ApprovedSnippet owned by
	// (tenantID, agentID). Returns false without distinguishing
	// not-owned from not-found (spec §4.3, invariant 6).
	MarkDeleted(ctx context.Context, id, tenantID, agentID string) (bool, error)

	// NearestApproved runs a tenant/public-scoped cosine-distance query,
	// ascending by distance, filtering DeletedAt IS NULL (spec §4.3).
	NearestApproved(ctx context.Context, query pgvector.Vector, tenantID string, limit, offset int, excludeIDs []string, distanceCeiling *float64) ([]Scored, error)

	// FetchApproved returns nil for both not-visible and not-exists (spec §4.3).
	FetchApproved(ctx context.Context, id, tenantID string) (*ApprovedSnippet, error)

	// ListByAgent merges Pending and Approved rows for (tenantID, agentID),
	// sorted by EventTime descending with ID as a tiebreaker (spec §9 Open
	// Question 3). cursor is an opaque forward-only offset.
	ListByAgent(ctx context.Context, tenantID, agentID string, cursor int, limit int) ([]ListItem, int, error)

	// SubscribeApprovals returns a channel of every published approval
	// event until ctx is cancelled. Implemented over a dedicated
	// LISTEN/NOTIFY connection distinct from the transactional pool
	// (spec §4.3, §9).
	SubscribeApprovals(ctx context.Context) (<-chan ApprovalPayload, error)

	// Stats returns aggregate counters for a tenant (spec §6.3).
	Stats(ctx context.Context, tenantID string) (Stats, error)

	// EnsureDeploymentIdentity writes the identity on first start, or
	// verifies it matches on subsequent starts, failing loud on drift
	// (spec §3.1, §4.2).
	EnsureDeploymentIdentity(ctx context.Context, modelID string, revision *string, dimensions int) error

	Close() error
}

// Releaser commits (Release(nil)) or rolls back (Release(err)) a claim
// transaction opened by FetchPending.
type Releaser interface {
	Release(err error) error
}
