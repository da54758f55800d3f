package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bazaar/config"
	deliverycontext "bazaar/internal/delivery/context"
	"bazaar/internal/delivery/http/cookie"
	"bazaar/internal/delivery/http/middleware"
	"bazaar/internal/delivery/http/validator"
	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubOAuthUsecase records inputs and plays back scripted outcomes.
type stubOAuthUsecase struct {
	usecase.OAuthUsecase

	beginInput *usecase.BeginOAuthInput
	beginURL   string

	callbackOutput *usecase.OAuthCallbackOutput
	callbackErr    error

	completeInput  *usecase.CompleteSignupInput
	completeOutput *usecase.LoginOutput
}

func (s *stubOAuthUsecase) Begin(ctx context.Context, input usecase.BeginOAuthInput) (string, error) {
	s.beginInput = &input

	return s.beginURL, nil
}

func (s *stubOAuthUsecase) HandleCallback(ctx context.Context, input usecase.OAuthCallbackInput) (*usecase.OAuthCallbackOutput, error) {
	if s.callbackErr != nil {
		return nil, s.callbackErr
	}

	return s.callbackOutput, nil
}

func (s *stubOAuthUsecase) CompleteSignup(ctx context.Context, input usecase.CompleteSignupInput) (*usecase.LoginOutput, error) {
	s.completeInput = &input

	return s.completeOutput, nil
}

// stubReauthConsumer covers the step-up check the link intent performs.
type stubReauthConsumer struct {
	usecase.AuthUsecase

	consumedToken string
	consumeErr    error
}

func (s *stubReauthConsumer) ConsumeReauth(ctx context.Context, principal *entity.Principal, reauthToken string) error {
	s.consumedToken = reauthToken

	return s.consumeErr
}

func newTestOAuthHandler(oauthUC usecase.OAuthUsecase, authUC usecase.AuthUsecase) *OAuthHandler {
	cookies := cookie.NewManager(&config.Config{
		Auth: &config.AuthConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
			ReauthTTL:  5 * time.Minute,
		},
		Cookie: &config.CookieConfig{Domain: "example.com", Secure: true},
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewOAuthHandler(oauthUC, authUC, cookies, logger)
}

func newOAuthContext(t *testing.T, method, target string, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	e.Validator = validator.New()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()

	return e.NewContext(req, rec), rec
}

func TestOAuthHandler_BeginRedirects(t *testing.T) {
	oauthUC := &stubOAuthUsecase{beginURL: "https://provider.example.com/authorize?state=abc"}
	h := newTestOAuthHandler(oauthUC, &stubReauthConsumer{})

	c, rec := newOAuthContext(t, http.MethodGet, "/oauth/google/begin?intent=signin", "")
	c.SetParamNames("provider")
	c.SetParamValues("google")

	require.NoError(t, h.Begin(c))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, oauthUC.beginURL, rec.Header().Get(echo.HeaderLocation))
	require.NotNil(t, oauthUC.beginInput)
	assert.Equal(t, entity.IntentSignin, oauthUC.beginInput.Intent)
}

func TestOAuthHandler_BeginLinkRequiresLogin(t *testing.T) {
	oauthUC := &stubOAuthUsecase{beginURL: "https://provider.example.com/authorize"}
	h := newTestOAuthHandler(oauthUC, &stubReauthConsumer{})

	c, rec := newOAuthContext(t, http.MethodGet, "/oauth/google/begin?intent=link", "")
	c.SetParamNames("provider")
	c.SetParamValues("google")

	require.NoError(t, h.Begin(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, oauthUC.beginInput)
}

func TestOAuthHandler_BeginLinkRequiresStepUp(t *testing.T) {
	oauthUC := &stubOAuthUsecase{beginURL: "https://provider.example.com/authorize"}
	h := newTestOAuthHandler(oauthUC, &stubReauthConsumer{})

	c, rec := newOAuthContext(t, http.MethodGet, "/oauth/google/begin?intent=link", "")
	c.SetParamNames("provider")
	c.SetParamValues("google")
	deliverycontext.SetPrincipal(c, &entity.Principal{ID: 7, SessionID: uuid.New()})

	require.NoError(t, h.Begin(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, oauthUC.beginInput)
}

func TestOAuthHandler_BeginLinkConsumesStepUpToken(t *testing.T) {
	oauthUC := &stubOAuthUsecase{beginURL: "https://provider.example.com/authorize"}
	authUC := &stubReauthConsumer{}
	h := newTestOAuthHandler(oauthUC, authUC)

	c, rec := newOAuthContext(t, http.MethodGet, "/oauth/google/begin?intent=link", "")
	c.SetParamNames("provider")
	c.SetParamValues("google")
	c.Request().Header.Set(middleware.HeaderXReauthToken, "fresh-step-up-token")
	deliverycontext.SetPrincipal(c, &entity.Principal{ID: 7, SessionID: uuid.New()})

	require.NoError(t, h.Begin(c))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "fresh-step-up-token", authUC.consumedToken)
	require.NotNil(t, oauthUC.beginInput)
	assert.Equal(t, entity.IntentLink, oauthUC.beginInput.Intent)
}

func TestOAuthHandler_BeginLinkRejectsBurntToken(t *testing.T) {
	oauthUC := &stubOAuthUsecase{beginURL: "https://provider.example.com/authorize"}
	authUC := &stubReauthConsumer{consumeErr: errors.Wrap(domainerrors.ErrReauthRequired, "reauth token already used")}
	h := newTestOAuthHandler(oauthUC, authUC)

	c, _ := newOAuthContext(t, http.MethodGet, "/oauth/google/begin?intent=link", "")
	c.SetParamNames("provider")
	c.SetParamValues("google")
	c.Request().Header.Set(middleware.HeaderXReauthToken, "stale-token")
	deliverycontext.SetPrincipal(c, &entity.Principal{ID: 7, SessionID: uuid.New()})

	err := h.Begin(c)
	assert.ErrorIs(t, err, domainerrors.ErrReauthRequired)
	assert.Nil(t, oauthUC.beginInput)
}

func TestOAuthHandler_CallbackFailureRedirectsWithCode(t *testing.T) {
	oauthUC := &stubOAuthUsecase{
		callbackErr: errors.Wrap(domainerrors.ErrOAuthStateConsumed, "state already consumed"),
	}
	h := newTestOAuthHandler(oauthUC, &stubReauthConsumer{})

	c, rec := newOAuthContext(t, http.MethodGet, "/oauth/callback?state=abc&code=xyz", "")

	require.NoError(t, h.Callback(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?error=OAUTH_STATE_CONSUMED", rec.Header().Get(echo.HeaderLocation))
}

func TestOAuthHandler_CallbackProviderDenialRedirects(t *testing.T) {
	h := newTestOAuthHandler(&stubOAuthUsecase{}, &stubReauthConsumer{})

	c, rec := newOAuthContext(t, http.MethodGet, "/oauth/callback?error=access_denied", "")

	require.NoError(t, h.Callback(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?error=OAUTH_PROVIDER_ERROR", rec.Header().Get(echo.HeaderLocation))
}

func TestOAuthHandler_CallbackMissingParamsRedirects(t *testing.T) {
	h := newTestOAuthHandler(&stubOAuthUsecase{}, &stubReauthConsumer{})

	c, rec := newOAuthContext(t, http.MethodGet, "/oauth/callback?state=abc", "")

	require.NoError(t, h.Callback(c))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?error=VALIDATION_FAILED", rec.Header().Get(echo.HeaderLocation))
}

func TestOAuthHandler_CallbackInfraErrorStaysJSON(t *testing.T) {
	oauthUC := &stubOAuthUsecase{callbackErr: errors.New("database unreachable")}
	h := newTestOAuthHandler(oauthUC, &stubReauthConsumer{})

	c, _ := newOAuthContext(t, http.MethodGet, "/oauth/callback?state=abc&code=xyz", "")

	// Unclassified failures keep flowing to the error middleware.
	assert.Error(t, h.Callback(c))
}

func TestOAuthHandler_CompleteSignupPassesConfirmedEmail(t *testing.T) {
	oauthUC := &stubOAuthUsecase{
		completeOutput: &usecase.LoginOutput{
			Tokens: &usecase.AuthTokens{
				AccessToken:  "access",
				RefreshToken: "refresh",
				SessionID:    uuid.New(),
			},
			User: &entity.User{ID: 7, Email: "carol@example.com", Username: "carol"},
		},
	}
	h := newTestOAuthHandler(oauthUC, &stubReauthConsumer{})

	body := `{"state":"pending-state","username":"carol","email":"carol@example.com"}`
	c, rec := newOAuthContext(t, http.MethodPost, "/oauth/complete", body)

	require.NoError(t, h.CompleteSignup(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, oauthUC.completeInput)
	assert.Equal(t, "carol@example.com", oauthUC.completeInput.Email)
	assert.Equal(t, "carol", oauthUC.completeInput.Username)
}

func TestOAuthHandler_CompleteSignupRejectsMalformedEmail(t *testing.T) {
	oauthUC := &stubOAuthUsecase{}
	h := newTestOAuthHandler(oauthUC, &stubReauthConsumer{})

	body := `{"state":"pending-state","username":"carol","email":"not-an-email"}`
	c, rec := newOAuthContext(t, http.MethodPost, "/oauth/complete", body)

	require.NoError(t, h.CompleteSignup(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, oauthUC.completeInput)
}
