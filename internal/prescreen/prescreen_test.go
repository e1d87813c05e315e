package prescreen

import (
	"context"
	"strings"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemind-dev/hivemind/internal/store"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, s string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type fakeStore struct {
	scored          []store.Scored
	lastCeiling     *float64
	lastLimit       int
}

func (f *fakeStore) InsertPending(ctx context.Context, p *store.PendingContribution) (string, error) {
	return "", nil
}
func (f *fakeStore) FetchPending(ctx context.Context, tenantID string, limit int, claim bool) ([]store.PendingContribution, store.Releaser, error) {
	return nil, nil, nil
}
func (f *fakeStore) FetchPendingByID(ctx context.Context, tenantID, id string) (store.PendingContribution, store.Releaser, error) {
	return store.PendingContribution{}, nil, nil
}
func (f *fakeStore) DeletePending(ctx context.Context, id string) error { return nil }
func (f *fakeStore) FlagPendingSensitive(ctx context.Context, tenantID, id string) error { return nil }
func (f *fakeStore) InsertApproved(ctx context.Context, s *store.ApprovedSnippet, pendingID string) (string, error) {
	return "", nil
}
func (f *fakeStore) MarkDeleted(ctx context.Context, id, tenantID, agentID string) (bool, error) {
	return false, nil
}
func (f *fakeStore) NearestApproved(ctx context.Context, query pgvector.Vector, tenantID string, limit, offset int, excludeIDs []string, distanceCeiling *float64) ([]store.Scored, error) {
	f.lastLimit = limit
	f.lastCeiling = distanceCeiling
	return f.scored, nil
}
func (f *fakeStore) FetchApproved(ctx context.Context, id, tenantID string) (*store.ApprovedSnippet, error) {
	return nil, nil
}
func (f *fakeStore) ListByAgent(ctx context.Context, tenantID, agentID string, cursor, limit int) ([]store.ListItem, int, error) {
	return nil, 0, nil
}
func (f *fakeStore) SubscribeApprovals(ctx context.Context) (<-chan store.ApprovalPayload, error) {
	return nil, nil
}
func (f *fakeStore) Stats(ctx context.Context, tenantID string) (store.Stats, error) {
	return store.Stats{}, nil
}
func (f *fakeStore) EnsureDeploymentIdentity(ctx context.Context, modelID string, revision *string, dimensions int) error {
	return nil
}
func (f *fakeStore) Close() error { return nil }

var _ store.Store = (*fakeStore)(nil)

func TestRun_UsesSpecPinnedCeilingAndLimit(t *testing.T) {
	st := &fakeStore{}
	svc := New(st, fakeEmbedder{})

	_, err := svc.Run(context.Background(), store.PendingContribution{TenantID: "t1", Confidence: 0.5, Content: "some content"})
	require.NoError(t, err)
	require.NotNil(t, st.lastCeiling)
	assert.InDelta(t, 0.35, *st.lastCeiling, 1e-9)
	assert.Equal(t, 3, st.lastLimit)
}

func TestRun_FlagsLikelyDuplicateAboveEightyPercent(t *testing.T) {
	st := &fakeStore{scored: []store.Scored{
		{Snippet: store.ApprovedSnippet{ID: "s1"}, Distance: 0.1}, // 90% similarity
		{Snippet: store.ApprovedSnippet{ID: "s2"}, Distance: 0.3}, // 70% similarity
	}}
	svc := New(st, fakeEmbedder{})

	res, err := svc.Run(context.Background(), store.PendingContribution{TenantID: "t1", Confidence: 0.5, Content: "some content"})
	require.NoError(t, err)
	require.Len(t, res.Similar, 2)
	assert.True(t, res.Similar[0].LikelyDuplicate)
	assert.False(t, res.Similar[1].LikelyDuplicate)
}

func TestQualityIndex_HighBadge(t *testing.T) {
	index, badge := qualityIndex(store.PendingContribution{Confidence: 0.95, Content: strings.Repeat("x", 250)})
	assert.Equal(t, 100, index)
	assert.Equal(t, "High", badge)
}

func TestQualityIndex_SensitiveFlagPenalty(t *testing.T) {
	index, badge := qualityIndex(store.PendingContribution{Confidence: 0.9, SensitiveFlag: true, Content: strings.Repeat("x", 100)})
	assert.Equal(t, 60, index)
	assert.Equal(t, "Medium", badge)
}

func TestQualityIndex_ShortContentPenaltyAndLowBadge(t *testing.T) {
	index, badge := qualityIndex(store.PendingContribution{Confidence: 0.3, Content: "short"})
	assert.Equal(t, 10, index)
	assert.Equal(t, "Low", badge)
}

func TestQualityIndex_ClampsToZero(t *testing.T) {
	index, badge := qualityIndex(store.PendingContribution{Confidence: 0.1, SensitiveFlag: true, Content: "x"})
	assert.Equal(t, 0, index)
	assert.Equal(t, "Low", badge)
}
