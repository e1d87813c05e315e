package store

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Category is the closed enumeration of contribution categories (spec §6.1).
type Category string

const (
	CategoryBugFix          Category = "bug_fix"
	CategoryWorkaround      Category = "workaround"
	CategoryConfiguration   Category = "configuration"
	CategoryDomainExpertise Category = "domain_expertise"
	CategoryTooling         Category = "tooling"
	CategoryArchitecture    Category = "architecture"
	CategoryPattern         Category = "pattern"
	CategoryExplanation     Category = "explanation"
	CategoryReasoningTrace  Category = "reasoning_trace"
	CategoryFailedApproach  Category = "failed_approach"
	CategoryOther           Category = "other"
)

// ValidCategories is the closed set accepted by Ingest (spec §6.1); extendable by config.
var ValidCategories = map[Category]bool{
	CategoryBugFix:          true,
	CategoryWorkaround:      true,
	CategoryConfiguration:   true,
	CategoryDomainExpertise: true,
	CategoryTooling:         true,
	CategoryArchitecture:    true,
	CategoryPattern:         true,
	CategoryExplanation:     true,
	CategoryReasoningTrace:  true,
	CategoryFailedApproach:  true,
	CategoryOther:           true,
}

// PendingContribution is a quarantined, already-sanitised submission
// awaiting review (spec §3.1).
type PendingContribution struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TenantID       string    `gorm:"index:idx_pending_tenant;not null"`
	AgentID        string    `gorm:"index:idx_pending_tenant_agent;not null"`
	RunID          *string
	Content        string   `gorm:"not null"`
	Category       Category `gorm:"not null"`
	Confidence     float64  `gorm:"not null"`
	Framework      *string
	Language       *string
	Tags           []string `gorm:"serializer:json"`
	ContentHash    string   `gorm:"index;not null"`
	SubmittedAt    time.Time `gorm:"not null;index:idx_pending_tenant_agent"`
	SensitiveFlag  bool      `gorm:"not null;default:false"`
}

func (PendingContribution) TableName() string { return "pending_contributions" }

// ApprovedSnippet is a promoted contribution (spec §3.1). Provenance fields
// are frozen at promotion time (invariant 3); only DeletedAt, RetrievalCount,
// HelpfulCount, and NotHelpfulCount may mutate afterwards.
type ApprovedSnippet struct {
	ID               string   `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TenantID         string   `gorm:"not null;index:idx_approved_tenant"`
	AgentID          string   `gorm:"not null"`
	RunID            *string
	Content          string   `gorm:"not null"`
	Category         Category `gorm:"not null"`
	OriginalCategory Category `gorm:"not null"`
	Confidence       float64  `gorm:"not null"`
	Framework        *string
	Language         *string
	Tags             []string        `gorm:"serializer:json"`
	ContentHash      string          `gorm:"not null"`
	IsPublic         bool            `gorm:"not null;default:false"`
	Embedding        pgvector.Vector `gorm:"type:vector(1536)"`
	ApprovedAt       time.Time       `gorm:"not null"`
	DeletedAt        *time.Time      `gorm:"index:idx_approved_tenant"`
	RetrievalCount   int             `gorm:"not null;default:0"`
	HelpfulCount     int             `gorm:"not null;default:0"`
	NotHelpfulCount  int             `gorm:"not null;default:0"`
}

func (ApprovedSnippet) TableName() string { return "approved_snippets" }

// DeploymentIdentity is the single-row process-wide record pinning the
// active embedding model (spec §3.1).
type DeploymentIdentity struct {
	ID                     uint   `gorm:"primaryKey"`
	EmbeddingModelID       string `gorm:"not null"`
	EmbeddingModelRevision *string
	EmbeddingDimensions    int `gorm:"not null"`
}

func (DeploymentIdentity) TableName() string { return "deployment_identity" }

// Scored pairs an ApprovedSnippet with its cosine distance to a query vector.
type Scored struct {
	Snippet  ApprovedSnippet
	Distance float64
}

// ListItem is a merged row returned by ListByAgent: either a pending or an
// approved snippet, tagged by Status per spec §6.1's list_knowledge result shape.
type ListItem struct {
	ID        string
	Status    string // "pending" | "approved"
	Category  Category
	Title     string
	EventTime time.Time
}
