package context

import (
	"context"

	"github.com/labstack/echo/v4"

	"bazaar/internal/domain/entity"
)

// KeyPrincipal is the key for storing the resolved principal in context.
const KeyPrincipal ContextKey = "principal"

// GetPrincipal extracts the resolved principal from echo.Context.
// Returns nil when no guard ran on the route.
func GetPrincipal(c echo.Context) *entity.Principal {
	val := c.Get(string(KeyPrincipal))
	if principal, ok := val.(*entity.Principal); ok {
		return principal
	}

	return nil
}

// SetPrincipal stores the resolved principal in echo.Context.
func SetPrincipal(c echo.Context, principal *entity.Principal) {
	c.Set(string(KeyPrincipal), principal)
}

// GetPrincipalFromContext extracts the principal from standard context.Context.
func GetPrincipalFromContext(ctx context.Context) *entity.Principal {
	if principal, ok := ctx.Value(KeyPrincipal).(*entity.Principal); ok {
		return principal
	}

	return nil
}

// WithPrincipal returns a new context carrying the principal.
func WithPrincipal(ctx context.Context, principal *entity.Principal) context.Context {
	return context.WithValue(ctx, KeyPrincipal, principal)
}
