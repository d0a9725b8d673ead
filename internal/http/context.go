package http

import (
	"context"

	"github.com/example/workforce/internal/application"
)

type contextKey string

const principalContextKey contextKey = "principal"

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// viewerFromContext returns the principal as a pointer, nil for anonymous callers.
func viewerFromContext(ctx context.Context) *application.Principal {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil
	}
	return &principal
}
