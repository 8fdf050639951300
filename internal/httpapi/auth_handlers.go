package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"carefront.org/internal/audit"
	"carefront.org/internal/auth"
	"carefront.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Success   bool         `json:"success"`
	User      auth.Profile `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req auth.Registration
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := a.auth.Register(r.Context(), req)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"identity_id": profile.ID,
		"role":        profile.Role,
	})

	// Issue the first session immediately so clients don't need a
	// second round trip.
	session, err := a.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		Success:   true,
		User:      session.Profile,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC(),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	session, err := a.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		a.recordLoginFailure(r, req.Email, err)
		handleAuthError(w, r, err)
		return
	}

	obs.ObserveLogin("success")
	_ = audit.LogEvent(r.Context(), "auth.login.success", map[string]any{
		"identity_id": session.Profile.ID,
	})
	writeJSON(w, http.StatusOK, sessionResponse{
		Success:   true,
		User:      session.Profile,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC(),
	})
}

func (a *API) recordLoginFailure(r *http.Request, email string, err error) {
	switch {
	case errors.Is(err, auth.ErrAccountLocked):
		obs.ObserveLogin("locked")
		_ = audit.LogEvent(r.Context(), "auth.login.locked", map[string]any{"email": email})
	case errors.Is(err, auth.ErrAccountNotActive):
		obs.ObserveLogin("inactive")
		_ = audit.LogEvent(r.Context(), "auth.login.failure", map[string]any{"email": email, "reason": "inactive"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		obs.ObserveLogin("invalid")
		_ = audit.LogEvent(r.Context(), "auth.login.failure", map[string]any{"email": email, "reason": "invalid_credentials"})
	default:
		obs.ObserveLogin("error")
	}
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok || principal.Identity == nil {
		unauthorized(w, r, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    principal.Identity.Profile(),
	})
}

// handleLogout acknowledges the client discarding its token. Tokens are
// self-contained and unrevokable until expiry; the per-request status
// re-check covers forced deactivation.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok && principal.Identity != nil {
		_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
			"identity_id": principal.Identity.ID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleIdentities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	profiles, err := a.auth.Identities(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "listing identities failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"items":   profiles,
	})
}

// handleAuthError maps core errors onto the HTTP taxonomy. Internal
// details never reach the client.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrDuplicateIdentity):
		writeError(w, r, http.StatusBadRequest, "an account with this email or username already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, auth.ErrAccountNotActive):
		writeError(w, r, http.StatusForbidden, "account is not active")
	case errors.Is(err, auth.ErrAccountLocked):
		writeError(w, r, http.StatusLocked, "account is temporarily locked, try again later")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
