package middleware

import (
	"strings"

	deliverycontext "bazaar/internal/delivery/context"
	"bazaar/internal/delivery/http/cookie"
	"bazaar/internal/delivery/http/response"
	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AuthMiddleware resolves the authenticated principal for protected routes.
type AuthMiddleware struct {
	authUsecase usecase.AuthUsecase
	cookies     *cookie.Manager
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(authUsecase usecase.AuthUsecase, cookies *cookie.Manager) *AuthMiddleware {
	return &AuthMiddleware{authUsecase: authUsecase, cookies: cookies}
}

// Authenticate validates the access token and attaches the principal to the
// request. The token is read from the access cookie first, then from the
// Authorization header for non-browser clients.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := m.extractToken(c)
		if token == "" {
			return response.Unauthorized(c, "UNAUTHENTICATED", "Missing access token")
		}

		principal, err := m.authUsecase.ResolvePrincipal(c.Request().Context(), token)
		if err != nil {
			m.clearDeadCookies(c, err)

			return err
		}

		m.attachPrincipal(c, principal)

		return next(c)
	}
}

// OptionalAuthenticate attaches a principal when a valid access token rides
// along, and lets the request through anonymously otherwise. It never rejects
// and never touches cookies.
func (m *AuthMiddleware) OptionalAuthenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token := m.extractToken(c); token != "" {
			if principal := m.authUsecase.ResolveOptional(c.Request().Context(), token); principal != nil {
				m.attachPrincipal(c, principal)
			}
		}

		return next(c)
	}
}

// clearDeadCookies drops the cookies a failed resolution proves useless. A
// revoked or expired session kills the refresh token too, so both session
// cookies go; any other failure only invalidates the access token, leaving
// the refresh flow available.
func (m *AuthMiddleware) clearDeadCookies(c echo.Context, err error) {
	if errors.Is(err, domainerrors.ErrSessionRevoked) || errors.Is(err, domainerrors.ErrSessionExpired) {
		m.cookies.ClearSession(c)

		return
	}

	if errors.Is(err, domainerrors.ErrUnauthenticated) {
		m.cookies.ClearAccess(c)
	}
}

func (m *AuthMiddleware) attachPrincipal(c echo.Context, principal *entity.Principal) {
	deliverycontext.SetPrincipal(c, principal)
	ctx := deliverycontext.WithPrincipal(c.Request().Context(), principal)
	c.SetRequest(c.Request().WithContext(ctx))
}

// RequireAdmin allows only admin or superadmin principals.
// It must be used AFTER the Authenticate middleware.
func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal := deliverycontext.GetPrincipal(c)
		if principal == nil || (!principal.IsAdmin && !principal.IsSuperadmin) {
			return response.Forbidden(c, "FORBIDDEN", "Admin privileges required")
		}

		return next(c)
	}
}

// RequireSuperadmin allows only superadmin principals.
// It must be used AFTER the Authenticate middleware.
func (m *AuthMiddleware) RequireSuperadmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal := deliverycontext.GetPrincipal(c)
		if principal == nil || !principal.IsSuperadmin {
			return response.Forbidden(c, "FORBIDDEN", "Superadmin privileges required")
		}

		return next(c)
	}
}

func (m *AuthMiddleware) extractToken(c echo.Context) string {
	if ck, err := c.Cookie(cookie.AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return ""
	}

	return token
}
