package authapi

import (
	"net/http"
	"strings"
	"time"

	"techheal/cmd/identity"
)

// Gate authenticates incoming requests from their bearer credential.
//
// A rejected request gets 401 with a WWW-Authenticate challenge and the same
// body regardless of why the credential failed.
type Gate struct {
	resolver *identity.Resolver
}

// NewGate wraps an identity resolver for per-handler use.
func NewGate(resolver *identity.Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// Require extracts and resolves the bearer token. On failure it writes the
// 401 response and returns ok=false; handlers just return.
func (g *Gate) Require(w http.ResponseWriter, r *http.Request) (identity.User, bool) {
	return g.require(w, r, BearerToken(r))
}

// RequireWithQuery behaves like Require but falls back to the access_token
// query parameter. Browser WebSocket clients cannot set request headers, so
// the websocket route authenticates this way.
func (g *Gate) RequireWithQuery(w http.ResponseWriter, r *http.Request) (identity.User, bool) {
	raw := BearerToken(r)
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	return g.require(w, r, raw)
}

func (g *Gate) require(w http.ResponseWriter, r *http.Request, raw string) (identity.User, bool) {
	if g == nil || g.resolver == nil || raw == "" {
		g.reject(w)
		return identity.User{}, false
	}

	u, err := g.resolver.Resolve(r.Context(), raw, time.Now().UTC())
	if err != nil {
		g.reject(w)
		return identity.User{}, false
	}
	return u, true
}

func (g *Gate) reject(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteError(w, http.StatusUnauthorized, "unauthorized", identity.ErrUnauthenticated.Error())
}

// BearerToken extracts the credential from the Authorization header; empty
// when the header is missing or not a Bearer scheme.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
