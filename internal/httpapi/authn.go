package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"carefront.org/internal/audit"
	"carefront.org/internal/auth"
	"carefront.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/auth/login",
	"/auth/register",
	"/v1/auth/login",
	"/v1/auth/register",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

// withAuth resolves the bearer token once per request and stashes the
// live principal in the context. Resolution reloads the identity, so a
// deactivated account is rejected immediately even with an unexpired
// token.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.ObserveDenial("no_token")
			unauthorized(w, r, "authentication required")
			return
		}

		principal, err := a.auth.Resolve(r.Context(), token)
		if err != nil {
			a.denyAuthn(w, r, err)
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// denyAuthn maps token resolution failures onto responses. The client
// message stays generic; the distinct reason goes to metrics and audit.
func (a *API) denyAuthn(w http.ResponseWriter, r *http.Request, err error) {
	reason := "invalid_token"
	switch {
	case errors.Is(err, auth.ErrNoToken):
		reason = "no_token"
	case errors.Is(err, auth.ErrTokenExpired):
		reason = "token_expired"
	case errors.Is(err, auth.ErrTokenNoLongerValid):
		reason = "token_no_longer_valid"
	case errors.Is(err, auth.ErrInvalidToken):
		reason = "invalid_token"
	default:
		writeError(w, r, http.StatusInternalServerError, "authentication error")
		return
	}
	obs.ObserveDenial(reason)
	_ = audit.LogEvent(r.Context(), "authz.denied", map[string]any{
		"reason": reason,
		"path":   r.URL.Path,
	})
	unauthorized(w, r, "invalid or expired token")
}

// Gate requires the module/action pair for the wrapped handler. This is
// the hook domain routers (patients, doctors, appointments, ...) mount
// in front of their business logic.
func (a *API) Gate(module auth.Module, action auth.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				unauthorized(w, r, "authentication required")
				return
			}
			if !principal.Allows(module, action) {
				obs.ObserveDenial("insufficient_permission")
				_ = audit.LogEvent(r.Context(), "authz.denied", map[string]any{
					"reason": "insufficient_permission",
					"module": module,
					"action": action,
					"path":   r.URL.Path,
				})
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole grants access iff the principal holds one of the roles.
// Coarser than Gate; used for endpoints gated purely by role.
func (a *API) RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				unauthorized(w, r, "authentication required")
				return
			}
			if !principal.HasRole(roles...) {
				obs.ObserveDenial("insufficient_role")
				_ = audit.LogEvent(r.Context(), "authz.denied", map[string]any{
					"reason": "insufficient_role",
					"path":   r.URL.Path,
				})
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="carefront"`)
	writeError(w, r, http.StatusUnauthorized, msg)
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="carefront"`)
	writeError(w, r, http.StatusForbidden, "insufficient permission")
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
