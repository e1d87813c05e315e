// Package ingest implements the Ingest Service (spec §4.4): validates a
// submission, runs it through the Sanitiser, enforces the redaction-ratio
// gate, hashes the sanitised content, and inserts a PendingContribution.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/hivemind-dev/hivemind/internal/auth"
	"github.com/hivemind-dev/hivemind/internal/hmerrors"
	"github.com/hivemind-dev/hivemind/internal/metrics"
	"github.com/hivemind-dev/hivemind/internal/sanitizer"
	"github.com/hivemind-dev/hivemind/internal/store"
)

// MaxConfidence and MinConfidence bound the caller-supplied confidence
// score (spec §6.1).
const (
	MinConfidence = 0.0
	MaxConfidence = 1.0
)

// Request is the add_knowledge tool's validated input (spec §6.1).
type Request struct {
	RunID      *string
	Content    string
	Category   store.Category
	Confidence float64
	Framework  *string
	Language   *string
	Tags       []string
}

// Result is returned to the caller on successful ingestion.
type Result struct {
	ID     string
	Status string // always "queued"
}

// Sanitiser is the subset of sanitizer.Sanitiser the Ingest Service depends on.
type Sanitiser interface {
	Sanitise(ctx context.Context, input string) (sanitizer.Result, error)
}

// Service is the Ingest Service (spec §4.4).
type Service struct {
	sanitiser        Sanitiser
	store            store.Store
	maxContentLength int
	ratioCeiling     float64
}

// Config configures the Ingest Service.
type Config struct {
	MaxContentLength int
	RatioCeiling     float64
}

// New constructs the Ingest Service.
func New(s Sanitiser, st store.Store, cfg Config) *Service {
	return &Service{
		sanitiser:        s,
		store:            st,
		maxContentLength: cfg.MaxContentLength,
		ratioCeiling:     cfg.RatioCeiling,
	}
}

// Submit runs the full ingestion pipeline (spec §4.4 steps 1-5). principal
// supplies TenantID and AgentID; these are never accepted from the caller's
// tool arguments (spec §4.9).
func (s *Service) Submit(ctx context.Context, principal auth.Principal, req Request) (Result, error) {
	if err := validate(req, s.maxContentLength); err != nil {
		metrics.ContributionsRejected.WithLabelValues("invalid-input").Inc()
		return Result{}, err
	}

	sanitised, err := s.sanitiser.Sanitise(ctx, req.Content)
	if err != nil {
		return Result{}, err
	}

	if sanitised.Ratio > s.ratioCeiling {
		metrics.ContributionsRejected.WithLabelValues("redaction-ratio").Inc()
		return Result{}, hmerrors.RedactionRejected(sanitised.Ratio)
	}

	hash := contentHash(sanitised.Sanitised)

	pending := &store.PendingContribution{
		TenantID:    principal.TenantID,
		AgentID:     principal.AgentID,
		RunID:       req.RunID,
		Content:     sanitised.Sanitised,
		Category:    req.Category,
		Confidence:  req.Confidence,
		Framework:   req.Framework,
		Language:    req.Language,
		Tags:        req.Tags,
		ContentHash: hash,
	}

	id, err := s.store.InsertPending(ctx, pending)
	if err != nil {
		return Result{}, err
	}

	metrics.ContributionsIngested.WithLabelValues(principal.TenantID).Inc()
	return Result{ID: id, Status: "queued"}, nil
}

func validate(req Request, maxContentLength int) error {
	if req.Content == "" {
		return hmerrors.InvalidInput("content must not be empty")
	}
	if maxContentLength > 0 && len(req.Content) > maxContentLength {
		return hmerrors.InvalidInput("content exceeds maximum length of %d characters", maxContentLength)
	}
	if !store.ValidCategories[req.Category] {
		return hmerrors.InvalidInput("unrecognised category %q", req.Category)
	}
	if req.Confidence < MinConfidence || req.Confidence > MaxConfidence {
		return hmerrors.InvalidInput("confidence must be between %.1f and %.1f", MinConfidence, MaxConfidence)
	}
	return nil
}

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
