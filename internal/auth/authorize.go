package auth

import (
	"context"
	"errors"
)

// Principal is a live identity resolved from a session token. It is
// rebuilt from the store on every request, so a status change takes
// effect immediately even while issued tokens remain unexpired.
type Principal struct {
	Identity *Identity
}

// Allows is the single place that evaluates module/action access,
// including the admin bypass. No caller special-cases role strings.
func (p Principal) Allows(module Module, action Action) bool {
	if p.Identity == nil {
		return false
	}
	if p.Identity.Role == RoleAdmin {
		return true
	}
	grant, ok := p.Identity.GrantFor(module)
	if !ok {
		return false
	}
	return grant.Allows(action)
}

// HasRole reports whether the principal holds one of the given roles.
func (p Principal) HasRole(roles ...Role) bool {
	if p.Identity == nil {
		return false
	}
	for _, r := range roles {
		if p.Identity.Role == r {
			return true
		}
	}
	return false
}

// Resolve verifies the token and reloads the referenced identity.
// The sequence of terminal failures mirrors the request gate: missing
// token, bad signature, expired, identity gone or no longer active.
func (s *Service) Resolve(ctx context.Context, token string) (Principal, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return Principal{}, err
	}
	identity, err := s.store.Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrTokenNoLongerValid
		}
		return Principal{}, err
	}
	if identity.Status != StatusActive {
		return Principal{}, ErrTokenNoLongerValid
	}
	return Principal{Identity: identity}, nil
}

// Authorize resolves the token and requires the module/action pair.
// This is the gate every protected domain route passes through.
func (s *Service) Authorize(ctx context.Context, token string, module Module, action Action) (Principal, error) {
	principal, err := s.Resolve(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	if !principal.Allows(module, action) {
		return Principal{}, ErrInsufficientPermission
	}
	return principal, nil
}

// RequireRole resolves the token and requires one of the given roles.
// Used for endpoints gated purely by role, such as the admin-only
// identity listing.
func (s *Service) RequireRole(ctx context.Context, token string, roles ...Role) (Principal, error) {
	principal, err := s.Resolve(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	if !principal.HasRole(roles...) {
		return Principal{}, ErrInsufficientPermission
	}
	return principal, nil
}
