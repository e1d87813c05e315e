package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/hivemind-dev/hivemind/internal/env"
	"github.com/hivemind-dev/hivemind/internal/hmerrors"
	"github.com/hivemind-dev/hivemind/internal/tracing"
)

const notifyChannel = "hivemind_approvals"

// Config configures the Postgres-backed Store. Adapted from
// kagent's internal/database.Config — HiveMind drops the sqlite branch
// because quarantine's at-most-once claim (§4.6) needs real row locking
// under concurrent writers, which a single-writer embedded database cannot
// provide.
type Config struct {
	URL     string
	URLFile string
}

// PostgresStore implements Store over gorm + a dedicated pgx listener connection.
type PostgresStore struct {
	db  *gorm.DB
	url string
}

// NewPostgresStore opens the transactional pool and runs AutoMigrate.
func NewPostgresStore(cfg Config) (*PostgresStore, error) {
	url := cfg.URL
	if cfg.URLFile != "" {
		resolved, err := resolveURLFile(cfg.URLFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve postgres URL from file: %w", err)
		}
		url = resolved
	}

	logLevel := logger.Warn
	switch env.GormLogLevel.Get() {
	case "error":
		logLevel = logger.Error
	case "info":
		logLevel = logger.Info
	case "silent":
		logLevel = logger.Silent
	}

	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to create vector extension: %w", err)
	}
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pgcrypto").Error; err != nil {
		return nil, fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	// The embedding column's dimension is pinned via the ApprovedSnippet
	// struct tag (vector(1536), matching the default text-embedding-3-small
	// model). Deploying a model with a different dimension count requires a
	// migration of this tag — EnsureDeploymentIdentity guards against
	// starting against a mismatched store.
	if err := db.AutoMigrate(&PendingContribution{}, &ApprovedSnippet{}, &DeploymentIdentity{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_approved_embedding_hnsw ON approved_snippets USING hnsw (embedding vector_cosine_ops)`).Error; err != nil {
		return nil, fmt.Errorf("failed to create hnsw index: %w", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_approved_tenant_live ON approved_snippets (tenant_id) WHERE deleted_at IS NULL`).Error; err != nil {
		return nil, fmt.Errorf("failed to create partial index: %w", err)
	}
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_approved_tenant_hash_private ON approved_snippets (tenant_id, content_hash) WHERE is_public = false`).Error; err != nil {
		return nil, fmt.Errorf("failed to create private hash uniqueness index: %w", err)
	}
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_approved_public_hash ON approved_snippets (content_hash) WHERE is_public = true`).Error; err != nil {
		return nil, fmt.Errorf("failed to create public hash uniqueness index: %w", err)
	}

	return &PostgresStore{db: db, url: url}, nil
}

func resolveURLFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading URL file: %w", err)
	}
	u := strings.TrimSpace(string(content))
	if u == "" {
		return "", fmt.Errorf("URL file %s is empty or contains only whitespace", path)
	}
	return u, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) InsertPending(ctx context.Context, p *PendingContribution) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.SubmittedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return "", hmerrors.Wrap(hmerrors.KindInternal, "insert pending contribution", err)
	}
	return p.ID, nil
}

type gormReleaser struct {
	tx       *gorm.DB
	released bool
}

func (r *gormReleaser) Release(err error) error {
	if r.released {
		return nil
	}
	r.released = true
	if err != nil {
		return r.tx.Rollback().Error
	}
	return r.tx.Commit().Error
}

// FetchPending opens a transaction and, when claim is true, locks the next
// `limit` unlocked rows FOR UPDATE SKIP LOCKED — the canonical realisation
// of at-most-once claim across competing reviewers (spec §4.6). The caller
// must call Releaser.Release to commit or roll back; until it does, the
// claimed rows are invisible to any other FetchPending call.
func (s *PostgresStore) FetchPending(ctx context.Context, tenantID string, limit int, claim bool) ([]PendingContribution, Releaser, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, nil, hmerrors.Wrap(hmerrors.KindInternal, "begin claim transaction", tx.Error)
	}

	q := tx.Where("tenant_id = ?", tenantID).Order("submitted_at ASC").Limit(limit)
	if claim {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}

	var rows []PendingContribution
	if err := q.Find(&rows).Error; err != nil {
		tx.Rollback()
		return nil, nil, hmerrors.Wrap(hmerrors.KindInternal, "fetch pending", err)
	}

	return rows, &gormReleaser{tx: tx}, nil
}

// FetchPendingByID claims a single pending row by id, scoped to tenantID
// (spec §4.5, §4.6). A concurrently claimed row is invisible to this call
// until its holder releases, so it surfaces as hmerrors.NotFound rather
// than a distinguishable "busy" state — the same non-distinguishing
// posture FetchApproved takes for cross-tenant reads.
func (s *PostgresStore) FetchPendingByID(ctx context.Context, tenantID, id string) (PendingContribution, Releaser, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return PendingContribution{}, nil, hmerrors.Wrap(hmerrors.KindInternal, "begin claim transaction", tx.Error)
	}

	var row PendingContribution
	err := tx.Where("id = ? AND tenant_id = ?", id, tenantID).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		First(&row).Error
	if err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return PendingContribution{}, nil, hmerrors.NotFound("pending contribution not found")
		}
		return PendingContribution{}, nil, hmerrors.Wrap(hmerrors.KindInternal, "fetch pending by id", err)
	}

	return row, &gormReleaser{tx: tx}, nil
}

func (s *PostgresStore) DeletePending(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&PendingContribution{}, "id = ?", id)
	if res.Error != nil {
		return hmerrors.Wrap(hmerrors.KindInternal, "delete pending", res.Error)
	}
	return nil
}

// FlagPendingSensitive toggles sensitive_flag on a pending row without
// deleting it (spec §4.5: "remains in quarantine").
func (s *PostgresStore) FlagPendingSensitive(ctx context.Context, tenantID, id string) error {
	res := s.db.WithContext(ctx).Model(&PendingContribution{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("sensitive_flag", true)
	if res.Error != nil {
		return hmerrors.Wrap(hmerrors.KindInternal, "flag pending sensitive", res.Error)
	}
	if res.RowsAffected == 0 {
		return hmerrors.NotFound("pending contribution not found")
	}
	return nil
}

// InsertApproved performs the full promotion transaction: insert the
// snippet, delete the pending row, and emit the notify payload — all in
// one transaction so none of it is visible unless it all commits (spec
// §4.5 step 1, §5 ordering guarantees).
func (s *PostgresStore) InsertApproved(ctx context.Context, snippet *ApprovedSnippet, pendingID string) (string, error) {
	if snippet.ID == "" {
		snippet.ID = uuid.NewString()
	}
	snippet.ApprovedAt = time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(snippet).Error; err != nil {
			if isUniqueViolation(err) {
				return hmerrors.Duplicate("a snippet with this content already exists for this scope")
			}
			return hmerrors.Wrap(hmerrors.KindInternal, "insert approved snippet", err)
		}

		if err := tx.Delete(&PendingContribution{}, "id = ?", pendingID).Error; err != nil {
			return hmerrors.Wrap(hmerrors.KindInternal, "delete pending after promotion", err)
		}

		payload := ApprovalPayload{
			ID:       snippet.ID,
			TenantID: snippet.TenantID,
			Category: snippet.Category,
			IsPublic: snippet.IsPublic,
			Title:    title(snippet.Content),
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return hmerrors.Wrap(hmerrors.KindInternal, "marshal approval payload", err)
		}
		if err := tx.Exec("SELECT pg_notify(?, ?)", notifyChannel, string(raw)).Error; err != nil {
			return hmerrors.Wrap(hmerrors.KindInternal, "publish approval notification", err)
		}

		return nil
	})
	if err != nil {
		return "", err
	}
	return snippet.ID, nil
}

func title(content string) string {
	if len(content) <= 80 {
		return content
	}
	return content[:80]
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "duplicate key value") || strings.Contains(err.Error(), "23505") || err == gorm.ErrDuplicatedKey
}

func (s *PostgresStore) MarkDeleted(ctx context.Context, id, tenantID, agentID string) (bool, error) {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&ApprovedSnippet{}).
		Where("id = ? AND tenant_id = ? AND agent_id = ? AND deleted_at IS NULL", id, tenantID, agentID).
		Update("deleted_at", now)
	if res.Error != nil {
		return false, hmerrors.Wrap(hmerrors.KindInternal, "mark deleted", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// NearestApproved runs the tenant-or-public-scoped cosine similarity query
// (spec §4.3). Visibility and soft-delete filtering happen in SQL so no
// non-visible row is ever scanned into a result, satisfying invariant 4.
func (s *PostgresStore) NearestApproved(ctx context.Context, query pgvector.Vector, tenantID string, limit, offset int, excludeIDs []string, distanceCeiling *float64) ([]Scored, error) {
	ctx, span := tracing.Tracer().Start(ctx, "store.NearestApproved")
	defer span.End()

	type row struct {
		ApprovedSnippet
		Distance float64
	}

	q := s.db.WithContext(ctx).Model(&ApprovedSnippet{}).
		Select("approved_snippets.*, embedding <=> ? AS distance", query).
		Where("deleted_at IS NULL").
		Where("(tenant_id = ? OR is_public = true)", tenantID).
		Order("distance ASC").
		Limit(limit).
		Offset(offset)

	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}
	if distanceCeiling != nil {
		q = q.Where("embedding <=> ? <= ?", query, *distanceCeiling)
	}

	var rows []row
	if err := q.Find(&rows).Error; err != nil {
		return nil, hmerrors.Wrap(hmerrors.KindInternal, "nearest approved query", err)
	}

	out := make([]Scored, 0, len(rows))
	for _, r := range rows {
		out = append(out, Scored{Snippet: r.ApprovedSnippet, Distance: r.Distance})
	}
	return out, nil
}

func (s *PostgresStore) FetchApproved(ctx context.Context, id, tenantID string) (*ApprovedSnippet, error) {
	var snippet ApprovedSnippet
	err := s.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL AND (tenant_id = ? OR is_public = true)", id, tenantID).
		First(&snippet).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, hmerrors.Wrap(hmerrors.KindInternal, "fetch approved", err)
	}
	return &snippet, nil
}

// ListByAgent merges Pending and Approved rows application-side and sorts
// by a single derived EventTime, descending, ID as tiebreaker — the total
// order documented in SPEC_FULL.md §C.4 (spec §9 Open Question 3).
func (s *PostgresStore) ListByAgent(ctx context.Context, tenantID, agentID string, cursor int, limit int) ([]ListItem, int, error) {
	var pending []PendingContribution
	if err := s.db.WithContext(ctx).Where("tenant_id = ? AND agent_id = ?", tenantID, agentID).Find(&pending).Error; err != nil {
		return nil, 0, hmerrors.Wrap(hmerrors.KindInternal, "list pending", err)
	}

	var approved []ApprovedSnippet
	if err := s.db.WithContext(ctx).Where("tenant_id = ? AND agent_id = ? AND deleted_at IS NULL", tenantID, agentID).Find(&approved).Error; err != nil {
		return nil, 0, hmerrors.Wrap(hmerrors.KindInternal, "list approved", err)
	}

	items := make([]ListItem, 0, len(pending)+len(approved))
	for _, p := range pending {
		items = append(items, ListItem{ID: p.ID, Status: "pending", Category: p.Category, Title: title(p.Content), EventTime: p.SubmittedAt})
	}
	for _, a := range approved {
		items = append(items, ListItem{ID: a.ID, Status: "approved", Category: a.Category, Title: title(a.Content), EventTime: a.ApprovedAt})
	}

	sortListItems(items)

	total := len(items)
	end := cursor + limit
	if end > total {
		end = total
	}
	if cursor > total {
		cursor = total
	}
	return items[cursor:end], end, nil
}

func sortListItems(items []ListItem) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0; j-- {
			a, b := items[j-1], items[j]
			if less(b, a) {
				items[j-1], items[j] = items[j], items[j-1]
			} else {
				break
			}
		}
	}
}

func less(a, b ListItem) bool {
	if !a.EventTime.Equal(b.EventTime) {
		return a.EventTime.Before(b.EventTime)
	}
	return a.ID < b.ID
}

func (s *PostgresStore) Stats(ctx context.Context, tenantID string) (Stats, error) {
	var out Stats
	var agg struct {
		Contributions   int64
		Retrievals      int64
		Helpful         int64
		NotHelpful      int64
	}
	err := s.db.WithContext(ctx).Model(&ApprovedSnippet{}).
		Where("tenant_id = ? AND deleted_at IS NULL", tenantID).
		Select("count(*) as contributions, coalesce(sum(retrieval_count),0) as retrievals, coalesce(sum(helpful_count),0) as helpful, coalesce(sum(not_helpful_count),0) as not_helpful").
		Scan(&agg).Error
	if err != nil {
		return out, hmerrors.Wrap(hmerrors.KindInternal, "stats query", err)
	}
	out.Contributions = agg.Contributions
	out.RetrievalsByOthers = agg.Retrievals
	out.HelpfulCount = agg.Helpful
	out.NotHelpfulCount = agg.NotHelpful
	return out, nil
}

// EnsureDeploymentIdentity writes the single-row identity on first start;
// on subsequent starts it compares and fails loud on drift, since
// cross-version embeddings are incompatible (spec §3.1, §4.2, §9).
func (s *PostgresStore) EnsureDeploymentIdentity(ctx context.Context, modelID string, revision *string, dimensions int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing DeploymentIdentity
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			return tx.Create(&DeploymentIdentity{
				ID:                     1,
				EmbeddingModelID:       modelID,
				EmbeddingModelRevision: revision,
				EmbeddingDimensions:    dimensions,
			}).Error
		}
		if err != nil {
			return hmerrors.Wrap(hmerrors.KindInternal, "load deployment identity", err)
		}

		if existing.EmbeddingModelID != modelID || existing.EmbeddingDimensions != dimensions {
			return fmt.Errorf("deployment identity drift: stored model=%s dims=%d, configured model=%s dims=%d — cross-version embeddings are incompatible, re-key the store or restore the prior configuration",
				existing.EmbeddingModelID, existing.EmbeddingDimensions, modelID, dimensions)
		}
		return nil
	})
}
