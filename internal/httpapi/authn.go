package httpapi

import (
	"net/http"
	"strings"

	"habb.tech/allo/internal/auth"
)

const (
	authCookieName = "auth_token"
	authHeader     = "Authorization"
	bearerPrefix   = "Bearer "
)

// tokenFromRequest pulls the credential from the auth cookie, falling back
// to an Authorization bearer header for non-browser clients.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(authCookieName); err == nil {
		if token := strings.TrimSpace(c.Value); token != "" {
			return token
		}
	}
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerPrefix)) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// withIdentity resolves the request credential and stashes the identity in
// the context. Requests without a resolvable identity proceed anonymously;
// the per-operation gates reject them where it matters.
func (a *API) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.resolver.Resolve(r.Context(), tokenFromRequest(r))
		if err != nil {
			a.log.Error().Err(err).Msg("identity resolution failed")
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		if identity != nil {
			r = r.WithContext(auth.ContextWithIdentity(r.Context(), identity))
		}
		next.ServeHTTP(w, r)
	})
}

// identity returns the request's resolved identity, or nil when anonymous.
func identity(r *http.Request) *auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}
