package middleware

import (
	deliverycontext "bazaar/internal/delivery/context"
	"bazaar/internal/delivery/http/cookie"
	"bazaar/internal/delivery/http/response"
	"bazaar/internal/usecase"

	"github.com/labstack/echo/v4"
)

// HeaderXReauthToken carries the step-up token for non-browser clients.
const HeaderXReauthToken = "X-Reauth-Token"

// ReauthMiddleware gates sensitive routes behind a fresh password check. The
// step-up token is single use: it is burned here, before the handler runs, so
// a replayed request fails even if the handler errors.
type ReauthMiddleware struct {
	authUsecase usecase.AuthUsecase
	cookies     *cookie.Manager
}

// NewReauthMiddleware is the constructor for ReauthMiddleware.
func NewReauthMiddleware(authUsecase usecase.AuthUsecase, cookies *cookie.Manager) *ReauthMiddleware {
	return &ReauthMiddleware{authUsecase: authUsecase, cookies: cookies}
}

// Gate consumes the reauth token for the current principal.
// It must be used AFTER the Authenticate middleware.
func (m *ReauthMiddleware) Gate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal := deliverycontext.GetPrincipal(c)
		if principal == nil {
			return response.Unauthorized(c, "UNAUTHENTICATED", "Authentication required")
		}

		token := m.extractToken(c)
		if token == "" {
			return response.Forbidden(c, "REAUTH_REQUIRED", "Recent password confirmation required")
		}

		// Burned whether or not the handler succeeds.
		m.cookies.ClearReauth(c)

		if err := m.authUsecase.ConsumeReauth(c.Request().Context(), principal, token); err != nil {
			return err
		}

		return next(c)
	}
}

func (m *ReauthMiddleware) extractToken(c echo.Context) string {
	if ck, err := c.Cookie(cookie.ReauthCookie); err == nil && ck.Value != "" {
		return ck.Value
	}

	return c.Request().Header.Get(HeaderXReauthToken)
}
