// Package cookie issues and clears the auth cookies. Each token kind gets its
// own cookie with a path scope matching where that kind is accepted, so a
// refresh token never rides along on ordinary API calls.
package cookie

import (
	"net/http"
	"time"

	"bazaar/config"

	"github.com/labstack/echo/v4"
)

// Cookie names per token kind.
const (
	AccessCookie  = "bzr_access"
	RefreshCookie = "bzr_refresh"
	ReauthCookie  = "bzr_reauth"
)

// Path scopes per token kind.
const (
	accessPath  = "/"
	refreshPath = "/auth"
	reauthPath  = "/admin"
)

// Manager builds cookies from the configured domain and transport policy.
type Manager struct {
	domain     string
	secure     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
	reauthTTL  time.Duration
}

// reauthTTLFloor mirrors the token codec's minimum reauth lifetime, so the
// cookie never dies before the token inside it.
const reauthTTLFloor = 30 * time.Second

// NewManager creates a cookie manager from config.
func NewManager(cfg *config.Config) *Manager {
	reauthTTL := cfg.Auth.ReauthTTL
	if reauthTTL < reauthTTLFloor {
		reauthTTL = reauthTTLFloor
	}

	return &Manager{
		domain:     cfg.Cookie.Domain,
		secure:     cfg.Cookie.Secure,
		accessTTL:  cfg.Auth.AccessTTL,
		refreshTTL: cfg.Auth.RefreshTTL,
		reauthTTL:  reauthTTL,
	}
}

// SetAccess writes the access token cookie, readable by every route.
func (m *Manager) SetAccess(c echo.Context, token string) {
	c.SetCookie(m.build(AccessCookie, token, accessPath, m.accessTTL))
}

// SetRefresh writes the refresh token cookie, scoped to the auth routes so it
// only travels on refresh and logout calls.
func (m *Manager) SetRefresh(c echo.Context, token string) {
	c.SetCookie(m.build(RefreshCookie, token, refreshPath, m.refreshTTL))
}

// SetReauth writes the step-up token cookie, scoped to the admin routes.
func (m *Manager) SetReauth(c echo.Context, token string) {
	c.SetCookie(m.build(ReauthCookie, token, reauthPath, m.reauthTTL))
}

// ClearAccess expires the access cookie.
func (m *Manager) ClearAccess(c echo.Context) {
	c.SetCookie(m.expired(AccessCookie, accessPath))
}

// ClearRefresh expires the refresh cookie.
func (m *Manager) ClearRefresh(c echo.Context) {
	c.SetCookie(m.expired(RefreshCookie, refreshPath))
}

// ClearReauth expires the reauth cookie.
func (m *Manager) ClearReauth(c echo.Context) {
	c.SetCookie(m.expired(ReauthCookie, reauthPath))
}

// ClearSession expires both session cookies after logout or refresh reuse.
func (m *Manager) ClearSession(c echo.Context) {
	m.ClearAccess(c)
	m.ClearRefresh(c)
}

func (m *Manager) build(name, value, path string, ttl time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   m.domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if m.secure {
		cookie.SameSite = http.SameSiteNoneMode
	}

	return cookie
}

func (m *Manager) expired(name, path string) *http.Cookie {
	cookie := m.build(name, "", path, 0)
	cookie.MaxAge = -1

	return cookie
}
