package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemind-dev/hivemind/internal/auth"
	"github.com/hivemind-dev/hivemind/internal/notifier"
	"github.com/hivemind-dev/hivemind/internal/store"
)

func TestServeHTTP_RejectsMissingCredential(t *testing.T) {
	n := notifier.New(8, time.Hour)
	authr := auth.NewStaticTokenAuthenticator(nil)
	h := New(n, authr)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServeHTTP_StreamsApprovalEvent(t *testing.T) {
	n := notifier.New(8, time.Hour)
	authr := auth.NewStaticTokenAuthenticator(map[string]auth.Principal{
		"tok": {TenantID: "t1", AgentID: "a1"},
	})
	h := New(n, authr)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()

	// give Subscribe a moment to register before broadcasting.
	require.Eventually(t, func() bool { return n.SubscriberCount() == 1 }, time.Second, time.Millisecond)

	go n.Run(ctx, singleEventUpstream(store.ApprovalPayload{ID: "1", TenantID: "t1", IsPublic: false}))

	require.Eventually(t, func() bool {
		return strings.Contains(rec.Body.String(), `"id":"1"`)
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ServeHTTP did not return after context cancellation")
	}

	assert.Contains(t, rec.Body.String(), "event: private")
}

func singleEventUpstream(payload store.ApprovalPayload) <-chan store.ApprovalPayload {
	ch := make(chan store.ApprovalPayload, 1)
	ch <- payload
	return ch
}
