// Package auth resolves an inbound credential to a (tenant_id, agent_id)
// pair (spec §4.9). It mirrors the teacher's Session/Principal split in
// internal/httpserver/auth/authn.go — a Session wraps a resolved identity,
// an Authenticator turns request headers into one — generalised so the
// resolved identity is HiveMind's tenant/agent pair rather than the
// teacher's Kubernetes user/agent principal, and credentials never come
// from tool arguments (spec §4.9, §7).
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/hivemind-dev/hivemind/internal/hmerrors"
)

// Principal identifies the caller a credential resolved to.
type Principal struct {
	TenantID string
	AgentID  string
}

// Session wraps a resolved Principal, mirroring the teacher's Session
// abstraction so callers never reach past it into raw headers.
type Session interface {
	Principal() Principal
}

type simpleSession struct {
	p Principal
}

func (s *simpleSession) Principal() Principal { return s.p }

// Authenticator resolves request headers into a Session. Implementations
// must reject rather than default when no credential is present — unlike
// the teacher's UnsecureAuthenticator, HiveMind has no notion of an
// anonymous admin principal (spec §4.9).
type Authenticator interface {
	Authenticate(ctx context.Context, headers http.Header) (Session, error)
}

// StaticTokenAuthenticator resolves bearer tokens and X-API-Key values
// against a fixed token-to-principal table. It is the credential backend
// used until a real identity provider is wired in; the table is supplied
// by the caller (env, file, or database-backed in a future iteration) so
// this package stays agnostic of where credentials are issued.
type StaticTokenAuthenticator struct {
	tokens map[string]Principal
}

// NewStaticTokenAuthenticator builds an Authenticator from a credential
// table mapping opaque tokens to resolved principals.
func NewStaticTokenAuthenticator(tokens map[string]Principal) *StaticTokenAuthenticator {
	table := make(map[string]Principal, len(tokens))
	for k, v := range tokens {
		table[k] = v
	}
	return &StaticTokenAuthenticator{tokens: table}
}

// Authenticate extracts a bearer token (Authorization: Bearer <token>) or
// an X-API-Key header and resolves it to a Principal. No fallback or
// default identity exists: an absent or unknown credential is always an
// auth error (spec §4.9, §7).
func (a *StaticTokenAuthenticator) Authenticate(ctx context.Context, headers http.Header) (Session, error) {
	token := bearerToken(headers)
	if token == "" {
		token = headers.Get("X-API-Key")
	}
	if token == "" {
		return nil, hmerrors.Auth("missing credential")
	}

	p, ok := a.tokens[token]
	if !ok {
		return nil, hmerrors.Auth("credential not recognised")
	}
	if p.TenantID == "" || p.AgentID == "" {
		return nil, hmerrors.Auth("credential resolved to an incomplete principal")
	}

	return &simpleSession{p: p}, nil
}

func bearerToken(headers http.Header) string {
	v := headers.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(v, prefix) {
		return strings.TrimPrefix(v, prefix)
	}
	return ""
}

type ctxKey struct{}

// Into stores a resolved Session on ctx, for handlers downstream of the
// transport layer to recover the caller's tenant/agent without re-parsing
// headers.
func Into(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// From recovers the Session stored by Into. ok is false if no session was
// ever attached — callers must treat that as unauthenticated, never as a
// default principal.
func From(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
