package approval

import (
	"context"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemind-dev/hivemind/internal/hmerrors"
	"github.com/hivemind-dev/hivemind/internal/store"
)

type fakeReleaser struct{ released bool }

func (r *fakeReleaser) Release(err error) error {
	r.released = true
	return nil
}

type fakeStore struct {
	pending      map[string]store.PendingContribution
	deletedIDs   []string
	flaggedIDs   []string
	insertedSnip *store.ApprovedSnippet
	insertErr    error
}

func (f *fakeStore) InsertPending(ctx context.Context, p *store.PendingContribution) (string, error) {
	return "", nil
}
func (f *fakeStore) FetchPending(ctx context.Context, tenantID string, limit int, claim bool) ([]store.PendingContribution, store.Releaser, error) {
	return nil, nil, nil
}
func (f *fakeStore) FetchPendingByID(ctx context.Context, tenantID, id string) (store.PendingContribution, store.Releaser, error) {
	p, ok := f.pending[id]
	if !ok || p.TenantID != tenantID {
		return store.PendingContribution{}, nil, hmerrors.NotFound("pending contribution not found")
	}
	return p, &fakeReleaser{}, nil
}
func (f *fakeStore) DeletePending(ctx context.Context, id string) error {
	f.deletedIDs = append(f.deletedIDs, id)
	delete(f.pending, id)
	return nil
}
func (f *fakeStore) FlagPendingSensitive(ctx context.Context, tenantID, id string) error {
	p, ok := f.pending[id]
	if !ok || p.TenantID != tenantID {
		return hmerrors.NotFound("pending contribution not found")
	}
	p.SensitiveFlag = true
	f.pending[id] = p
	f.flaggedIDs = append(f.flaggedIDs, id)
	return nil
}
func (f *fakeStore) InsertApproved(ctx context.Context, s *store.ApprovedSnippet, pendingID string) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.insertedSnip = s
	delete(f.pending, pendingID)
	return "approved-1", nil
}
func (f *fakeStore) MarkDeleted(ctx context.Context, id, tenantID, agentID string) (bool, error) {
	return false, nil
}
func (f *fakeStore) NearestApproved(ctx context.Context, query pgvector.Vector, tenantID string, limit, offset int, excludeIDs []string, distanceCeiling *float64) ([]store.Scored, error) {
	return nil, nil
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

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, s string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (fakeEmbedder) ModelID() string { return "fake-model" }

func newFakeStoreWithPending() *fakeStore {
	return &fakeStore{
		pending: map[string]store.PendingContribution{
			"p1": {
				ID:          "p1",
				TenantID:    "t1",
				AgentID:     "a1",
				Content:     "use a weighted semaphore to bound concurrent inference calls",
				Category:    store.CategoryPattern,
				Confidence:  0.9,
				ContentHash: "hash1",
			},
		},
	}
}

func TestApprove_PromotesAndEmbeds(t *testing.T) {
	st := newFakeStoreWithPending()
	svc := New(st, fakeEmbedder{})

	id, err := svc.Approve(context.Background(), ApproveRequest{PendingID: "p1", TenantID: "t1", IsPublic: true})
	require.NoError(t, err)
	assert.Equal(t, "approved-1", id)
	require.NotNil(t, st.insertedSnip)
	assert.Equal(t, store.CategoryPattern, st.insertedSnip.OriginalCategory)
	assert.True(t, st.insertedSnip.IsPublic)
}

func TestApprove_CategoryOverridePreservesOriginal(t *testing.T) {
	st := newFakeStoreWithPending()
	svc := New(st, fakeEmbedder{})

	override := store.CategoryArchitecture
	_, err := svc.Approve(context.Background(), ApproveRequest{PendingID: "p1", TenantID: "t1", Category: &override})
	require.NoError(t, err)
	assert.Equal(t, store.CategoryArchitecture, st.insertedSnip.Category)
	assert.Equal(t, store.CategoryPattern, st.insertedSnip.OriginalCategory)
}

func TestApprove_UnknownPendingIsGone(t *testing.T) {
	st := newFakeStoreWithPending()
	svc := New(st, fakeEmbedder{})

	_, err := svc.Approve(context.Background(), ApproveRequest{PendingID: "missing", TenantID: "t1"})
	require.Error(t, err)
	assert.Equal(t, hmerrors.KindGone, hmerrors.KindOf(err))
}

func TestReject_DeletesPendingWithoutPromotion(t *testing.T) {
	st := newFakeStoreWithPending()
	svc := New(st, fakeEmbedder{})

	err := svc.Reject(context.Background(), "t1", "p1")
	require.NoError(t, err)
	assert.Nil(t, st.insertedSnip)
	assert.Contains(t, st.deletedIDs, "p1")
}

func TestFlagSensitive_RetainsRowInQuarantine(t *testing.T) {
	st := newFakeStoreWithPending()
	svc := New(st, fakeEmbedder{})

	err := svc.FlagSensitive(context.Background(), "t1", "p1")
	require.NoError(t, err)
	assert.Nil(t, st.insertedSnip)
	assert.NotContains(t, st.deletedIDs, "p1")
	assert.Contains(t, st.flaggedIDs, "p1")

	p, ok := st.pending["p1"]
	require.True(t, ok)
	assert.True(t, p.SensitiveFlag)
}

func TestReject_OnAlreadyResolvedRowIsGone(t *testing.T) {
	st := newFakeStoreWithPending()
	svc := New(st, fakeEmbedder{})

	require.NoError(t, svc.Reject(context.Background(), "t1", "p1"))

	err := svc.Reject(context.Background(), "t1", "p1")
	require.Error(t, err)
	assert.Equal(t, hmerrors.KindGone, hmerrors.KindOf(err))
}
