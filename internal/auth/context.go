package auth

import "context"

type principalKey struct{}
type tokenKey struct{}

// ContextWithPrincipal returns a context carrying the resolved principal.
// The HTTP layer attaches it once per request after token resolution.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the principal attached by the request
// gate. ok is false on unauthenticated (public-path) requests.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	principal, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || principal.Identity == nil {
		return Principal{}, false
	}
	return principal, true
}

// ContextWithToken carries the raw bearer token for handlers that need
// to pass it to downstream calls.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the raw bearer token, if attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}
