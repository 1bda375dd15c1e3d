package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pmohq/pmo-api/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// Paths reachable without a session token.
var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/google",
	"/v1/auth/google/callback",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth resolves the bearer token into a live principal on every
// authenticated request. The account is re-fetched and roles reloaded per
// request, so deactivation and role edits take effect without re-login.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED")
			return
		}

		principal, err := a.svc.ResolveSession(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUnauthenticated):
				writeError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED")
			case errors.Is(err, auth.ErrUnavailable):
				writeError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")
			default:
				writeError(w, r, http.StatusInternalServerError, "INTERNAL")
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles gates a route on the given role names. Requirements are
// declared at route registration; the gate runs strictly after withAuth,
// and a request with no principal is always denied regardless of the
// requirement list.
func (a *API) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="pmo-api"`)
				writeError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED")
				return
			}
			if !auth.Authorize(roles, principal) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="pmo-api"`)
				writeError(w, r, http.StatusForbidden, "FORBIDDEN")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
