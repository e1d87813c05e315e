// Package embedder converts strings into fixed-dimension unit vectors using
// a pinned embedding model (spec §4.2), over OpenAI's embeddings endpoint —
// the same SDK (github.com/openai/openai-go) the teacher vendors for its LLM
// provider integrations, here pointed at the embeddings API instead of chat
// completions.
package embedder

import (
	"context"
	"math"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"

	"github.com/hivemind-dev/hivemind/internal/hmerrors"
	"github.com/hivemind-dev/hivemind/internal/tracing"
)

// Embedder is the process-wide singleton described in spec §4.2.
type Embedder struct {
	client     openai.Client
	modelID    string
	revision   *string
	dimensions int
	sem        *semaphore.Weighted
}

// Config configures the OpenAI-backed Embedder.
type Config struct {
	APIKey     string
	BaseURL    string
	ModelID    string
	Dimensions int
	QueueDepth int
}

// New constructs the Embedder. Model identity (ModelID, Dimensions) is
// immutable for the process lifetime and must be reconciled against the
// Store's DeploymentIdentity at startup (spec §4.2, §3.1).
func New(cfg Config) *Embedder {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Embedder{
		client:     openai.NewClient(opts...),
		modelID:    cfg.ModelID,
		dimensions: cfg.Dimensions,
		sem:        semaphore.NewWeighted(int64(cfg.QueueDepth)),
	}
}

func (e *Embedder) ModelID() string   { return e.modelID }
func (e *Embedder) Revision() *string { return e.revision }
func (e *Embedder) Dimensions() int   { return e.dimensions }

// Embed returns a unit-norm vector of length Dimensions for s (spec §4.2).
func (e *Embedder) Embed(ctx context.Context, s string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{s})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds multiple strings in one request, each result
// independently L2-normalised (spec §4.2).
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, span := tracing.Tracer().Start(ctx, "embedder.EmbedBatch")
	defer span.End()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, hmerrors.Busy("embedder inference queue saturated")
	}
	defer e.sem.Release(1)

	inputs := make([]string, len(texts))
	copy(inputs, texts)

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model:          openai.EmbeddingModel(e.modelID),
		Dimensions:     openai.Int(int64(e.dimensions)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, hmerrors.Wrap(hmerrors.KindInternal, "embedding request failed", err)
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			vec[j] = float32(f)
		}
		out[i] = normalise(vec)
	}
	return out, nil
}

// normalise enforces the unit-norm invariant (spec §3.2 invariant 2)
// defensively: provider output is expected unit-norm already, but the
// Embedder — not its callers — owns this guarantee.
func normalise(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// VerifyUnitNorm reports whether v's Euclidean norm is within 1e-5 of 1,
// the tolerance the spec's testable properties require (spec §8).
func VerifyUnitNorm(v []float32) bool {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	return math.Abs(math.Sqrt(sumSq)-1) <= 1e-5
}
