package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bazaar/config"
	deliverycontext "bazaar/internal/delivery/context"
	"bazaar/internal/delivery/http/cookie"
	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuthUsecase lets each test script the resolution outcome.
type stubAuthUsecase struct {
	usecase.AuthUsecase

	principal  *entity.Principal
	resolveErr error
}

func (s *stubAuthUsecase) ResolvePrincipal(ctx context.Context, accessToken string) (*entity.Principal, error) {
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}

	return s.principal, nil
}

func (s *stubAuthUsecase) ResolveOptional(ctx context.Context, accessToken string) *entity.Principal {
	if s.resolveErr != nil {
		return nil
	}

	return s.principal
}

func newTestCookieManager() *cookie.Manager {
	return cookie.NewManager(&config.Config{
		Auth: &config.AuthConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
			ReauthTTL:  5 * time.Minute,
		},
		Cookie: &config.CookieConfig{Domain: "example.com", Secure: true},
	})
}

func runAuthRequest(t *testing.T, m *AuthMiddleware, guard func(echo.HandlerFunc) echo.HandlerFunc, withToken bool) (*entity.Principal, *httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if withToken {
		req.AddCookie(&http.Cookie{Name: cookie.AccessCookie, Value: "some-access-token"})
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *entity.Principal
	err := guard(func(c echo.Context) error {
		seen = deliverycontext.GetPrincipal(c)

		return c.NoContent(http.StatusOK)
	})(c)

	return seen, rec, err
}

func clearedCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	cleared := map[string]*http.Cookie{}
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			cleared[ck.Name] = ck
		}
	}

	return cleared
}

func TestAuthenticate_AttachesPrincipal(t *testing.T) {
	stub := &stubAuthUsecase{principal: &entity.Principal{ID: 7, Email: "alice@example.com"}}
	m := NewAuthMiddleware(stub, newTestCookieManager())

	seen, rec, err := runAuthRequest(t, m, m.Authenticate, true)
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, int64(7), seen.ID)
	assert.Empty(t, clearedCookies(rec))
}

func TestAuthenticate_RevokedSessionClearsBothCookies(t *testing.T) {
	stub := &stubAuthUsecase{resolveErr: errors.Wrap(domainerrors.ErrSessionRevoked, "session revoked")}
	m := NewAuthMiddleware(stub, newTestCookieManager())

	_, rec, err := runAuthRequest(t, m, m.Authenticate, true)
	require.Error(t, err)

	cleared := clearedCookies(rec)
	assert.Contains(t, cleared, cookie.AccessCookie)
	assert.Contains(t, cleared, cookie.RefreshCookie)
}

func TestAuthenticate_ExpiredSessionClearsBothCookies(t *testing.T) {
	stub := &stubAuthUsecase{resolveErr: errors.Wrap(domainerrors.ErrSessionExpired, "session expired")}
	m := NewAuthMiddleware(stub, newTestCookieManager())

	_, rec, err := runAuthRequest(t, m, m.Authenticate, true)
	require.Error(t, err)

	cleared := clearedCookies(rec)
	assert.Contains(t, cleared, cookie.AccessCookie)
	assert.Contains(t, cleared, cookie.RefreshCookie)
}

func TestAuthenticate_InvalidTokenClearsAccessOnly(t *testing.T) {
	stub := &stubAuthUsecase{resolveErr: errors.Wrap(domainerrors.ErrUnauthenticated, "access token invalid")}
	m := NewAuthMiddleware(stub, newTestCookieManager())

	_, rec, err := runAuthRequest(t, m, m.Authenticate, true)
	require.Error(t, err)

	cleared := clearedCookies(rec)
	assert.Contains(t, cleared, cookie.AccessCookie)
	assert.NotContains(t, cleared, cookie.RefreshCookie)
}

func TestAuthenticate_ForbiddenKeepsCookies(t *testing.T) {
	// A banned or suspended account is still authenticated; its cookies
	// stay so reinstatement does not force a fresh login.
	stub := &stubAuthUsecase{resolveErr: errors.Wrap(domainerrors.ErrAccountBanned, "account banned")}
	m := NewAuthMiddleware(stub, newTestCookieManager())

	_, rec, err := runAuthRequest(t, m, m.Authenticate, true)
	require.Error(t, err)
	assert.Empty(t, clearedCookies(rec))
}

func TestOptionalAuthenticate_AttachesWhenValid(t *testing.T) {
	stub := &stubAuthUsecase{principal: &entity.Principal{ID: 7}}
	m := NewAuthMiddleware(stub, newTestCookieManager())

	seen, _, err := runAuthRequest(t, m, m.OptionalAuthenticate, true)
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, int64(7), seen.ID)
}

func TestOptionalAuthenticate_AnonymousPassesThrough(t *testing.T) {
	stub := &stubAuthUsecase{}
	m := NewAuthMiddleware(stub, newTestCookieManager())

	seen, rec, err := runAuthRequest(t, m, m.OptionalAuthenticate, false)
	require.NoError(t, err)
	assert.Nil(t, seen)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalAuthenticate_BadTokenPassesThroughWithoutClearing(t *testing.T) {
	stub := &stubAuthUsecase{resolveErr: errors.New("anything")}
	m := NewAuthMiddleware(stub, newTestCookieManager())

	seen, rec, err := runAuthRequest(t, m, m.OptionalAuthenticate, true)
	require.NoError(t, err)
	assert.Nil(t, seen)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, clearedCookies(rec))
}
