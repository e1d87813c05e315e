package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemind-dev/hivemind/internal/hmerrors"
)

func newHeaders(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestAuthenticate_BearerToken(t *testing.T) {
	authr := NewStaticTokenAuthenticator(map[string]Principal{
		"tok-1": {TenantID: "tenant-a", AgentID: "agent-1"},
	})

	sess, err := authr.Authenticate(context.Background(), newHeaders("Authorization", "Bearer tok-1"))
	require.NoError(t, err)
	assert.Equal(t, Principal{TenantID: "tenant-a", AgentID: "agent-1"}, sess.Principal())
}

func TestAuthenticate_APIKeyHeader(t *testing.T) {
	authr := NewStaticTokenAuthenticator(map[string]Principal{
		"tok-2": {TenantID: "tenant-b", AgentID: "agent-2"},
	})

	sess, err := authr.Authenticate(context.Background(), newHeaders("X-API-Key", "tok-2"))
	require.NoError(t, err)
	assert.Equal(t, "tenant-b", sess.Principal().TenantID)
}

func TestAuthenticate_MissingCredentialIsAuthError(t *testing.T) {
	authr := NewStaticTokenAuthenticator(nil)

	_, err := authr.Authenticate(context.Background(), newHeaders())
	require.Error(t, err)
	assert.Equal(t, hmerrors.KindAuth, hmerrors.KindOf(err))
}

func TestAuthenticate_UnknownTokenIsAuthError(t *testing.T) {
	authr := NewStaticTokenAuthenticator(map[string]Principal{
		"tok-1": {TenantID: "tenant-a", AgentID: "agent-1"},
	})

	_, err := authr.Authenticate(context.Background(), newHeaders("Authorization", "Bearer nope"))
	require.Error(t, err)
	assert.Equal(t, hmerrors.KindAuth, hmerrors.KindOf(err))
}

func TestIntoFrom_RoundTrips(t *testing.T) {
	sess := &simpleSession{p: Principal{TenantID: "t", AgentID: "a"}}
	ctx := Into(context.Background(), sess)

	got, ok := From(ctx)
	require.True(t, ok)
	assert.Equal(t, sess.Principal(), got.Principal())
}

func TestFrom_AbsentSessionIsNotOK(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
}
