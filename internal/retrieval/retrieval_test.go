package retrieval

import (
	"context"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemind-dev/hivemind/internal/hmerrors"
	"github.com/hivemind-dev/hivemind/internal/store"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, s string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type fakeStore struct {
	scored       []store.Scored
	fetchResult  *store.ApprovedSnippet
	lastOffset   int
	lastLimit    int
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
	f.lastOffset = offset
	return f.scored, nil
}
func (f *fakeStore) FetchApproved(ctx context.Context, id, tenantID string) (*store.ApprovedSnippet, error) {
	return f.fetchResult, nil
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

func TestSearch_BuildsSummaryTier(t *testing.T) {
	st := &fakeStore{
		scored: []store.Scored{
			{Snippet: store.ApprovedSnippet{ID: "s1", Content: "fix the flaky test by awaiting channel close", Category: store.CategoryBugFix, Confidence: 0.9, TenantID: "t1"}, Distance: 0.1},
		},
	}
	svc := New(st, fakeEmbedder{})

	res, err := svc.Search(context.Background(), "t1", SearchRequest{Query: "flaky test", Limit: 5})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "s1", res.Results[0].ID)
	assert.InDelta(t, 0.9, res.Results[0].RelevanceScore, 1e-9)
	assert.Empty(t, res.NextCursor)
}

func TestSearch_EmitsNextCursorWhenPageIsFull(t *testing.T) {
	st := &fakeStore{
		scored: []store.Scored{
			{Snippet: store.ApprovedSnippet{ID: "s1", Content: "a"}, Distance: 0.1},
		},
	}
	svc := New(st, fakeEmbedder{})

	res, err := svc.Search(context.Background(), "t1", SearchRequest{Query: "q", Limit: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, res.NextCursor)

	offset, err := decodeCursor(res.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, 1, offset)
}

func TestSearch_RejectsEmptyQuery(t *testing.T) {
	svc := New(&fakeStore{}, fakeEmbedder{})
	_, err := svc.Search(context.Background(), "t1", SearchRequest{Query: ""})
	require.Error(t, err)
	assert.Equal(t, hmerrors.KindInvalidInput, hmerrors.KindOf(err))
}

func TestSearch_FiltersByCategory(t *testing.T) {
	st := &fakeStore{
		scored: []store.Scored{
			{Snippet: store.ApprovedSnippet{ID: "s1", Category: store.CategoryBugFix}, Distance: 0.1},
			{Snippet: store.ApprovedSnippet{ID: "s2", Category: store.CategoryTooling}, Distance: 0.2},
		},
	}
	svc := New(st, fakeEmbedder{})
	cat := store.CategoryTooling

	res, err := svc.Search(context.Background(), "t1", SearchRequest{Query: "q", Category: &cat, Limit: 5})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "s2", res.Results[0].ID)
}

func TestFetch_NotFoundWhenStoreReturnsNil(t *testing.T) {
	svc := New(&fakeStore{fetchResult: nil}, fakeEmbedder{})
	_, err := svc.Fetch(context.Background(), "t1", "missing")
	require.Error(t, err)
	assert.Equal(t, hmerrors.KindNotFound, hmerrors.KindOf(err))
}

func TestFetch_ReturnsFullContent(t *testing.T) {
	snippet := &store.ApprovedSnippet{ID: "s1", Content: "full content here"}
	svc := New(&fakeStore{fetchResult: snippet}, fakeEmbedder{})

	res, err := svc.Fetch(context.Background(), "t1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "full content here", res.Content)
}

func TestDecodeCursor_RejectsGarbage(t *testing.T) {
	_, err := decodeCursor("not-base64!!")
	require.Error(t, err)
}
