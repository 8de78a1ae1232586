package middleware

import (
	"context"
	"net/http"
	"strings"
)

// IdentityResolver turns a bearer token into a user id.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (string, error)
}

type tokenKey struct{}

// BearerToken returns the token from an "Authorization: Bearer" header, or "".
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetToken returns the raw bearer token stored by OptionalAuth or RequireAuth.
func GetToken(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey{}).(string); ok {
		return v
	}
	return ""
}

func authenticate(w http.ResponseWriter, r *http.Request, resolver IdentityResolver) (*http.Request, bool) {
	token := BearerToken(r)
	if token == "" {
		return r, false
	}
	ctx := context.WithValue(r.Context(), tokenKey{}, token)

	userID, err := resolver.ResolveIdentity(ctx, token)
	if err != nil || userID == "" {
		return r.WithContext(ctx), false
	}
	ctx = SetUserID(ctx, userID)
	UpdateResponseContext(w, ctx)
	return r.WithContext(ctx), true
}

// OptionalAuth attaches the caller's user id when a valid bearer token is
// present. Requests without one, or with an invalid one, continue anonymously.
// The raw token is kept on the context either way (see GetToken).
func OptionalAuth(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, _ = authenticate(w, r, resolver)
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests without a valid bearer token with 401
// auth_failed.
func RequireAuth(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUserID(r.Context()) != "" {
				next.ServeHTTP(w, r)
				return
			}
			r, ok := authenticate(w, r, resolver)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="compare-api"`)
				writeError(w, r, http.StatusUnauthorized, "auth_failed", "A valid bearer token is required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
