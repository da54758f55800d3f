package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	deliverycontext "bazaar/internal/delivery/context"
	"bazaar/internal/delivery/http/cookie"
	"bazaar/internal/delivery/http/middleware"
	"bazaar/internal/delivery/http/response"
	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// OAuthHandler holds dependencies for external identity handlers.
type OAuthHandler struct {
	uc      usecase.OAuthUsecase
	authUC  usecase.AuthUsecase
	cookies *cookie.Manager
	logger  *slog.Logger
}

// NewOAuthHandler is the constructor for OAuthHandler, injected by Fx.
func NewOAuthHandler(uc usecase.OAuthUsecase, authUC usecase.AuthUsecase, cookies *cookie.Manager, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		uc:      uc,
		authUC:  authUC,
		cookies: cookies,
		logger:  logger,
	}
}

// identityView is the public shape of a linked identity.
type identityView struct {
	Provider string `json:"provider"`
	Email    string `json:"email"`
}

type completeSignupRequest struct {
	State    string `json:"state" validate:"required"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// Begin starts an authorization round-trip and redirects the browser to the
// provider, or returns the URL as JSON when redirect=false. Linking an
// identity to the current account is a takeover-sensitive action, so it
// demands a fresh step-up token on top of authentication.
func (h *OAuthHandler) Begin(c echo.Context) error {
	provider := entity.ProviderType(c.Param("provider"))
	if provider != entity.ProviderTypeGoogle {
		return response.BadRequest(c, "INVALID_INPUT", "Unsupported provider")
	}

	intent := entity.OAuthIntent(c.QueryParam("intent"))
	switch intent {
	case entity.IntentSignup, entity.IntentSignin, entity.IntentLink:
	case "":
		intent = entity.IntentSignin
	default:
		return response.BadRequest(c, "INVALID_INPUT", "Unsupported intent")
	}

	if intent == entity.IntentLink {
		if err := h.requireReauthedPrincipal(c); err != nil {
			return err
		}
	}

	authURL, err := h.uc.Begin(c.Request().Context(), usecase.BeginOAuthInput{
		Provider: provider,
		Intent:   intent,
		Next:     sanitizeNext(c.QueryParam("next")),
		Meta:     clientMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if c.QueryParam("redirect") == "false" {
		return response.Success(c, http.StatusOK, map[string]string{"authUrl": authURL}, "Authorization URL generated")
	}

	return c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// Callback handles the provider redirect. Depending on how the flow started
// it signs the user in, parks a pending signup, or links the identity. The
// browser lands here mid-redirect, so failures travel back as an error code
// in the query string rather than a JSON body.
func (h *OAuthHandler) Callback(c echo.Context) error {
	if errCode := c.QueryParam("error"); errCode != "" {
		h.logger.Warn("Provider denied the authorization", slog.String("code", errCode))

		return redirectWithError(c, "/", domainerrors.ErrOAuthProviderError.ErrorCode())
	}

	state := c.QueryParam("state")
	code := c.QueryParam("code")
	if state == "" || code == "" {
		return redirectWithError(c, "/", domainerrors.ErrValidationFailed.ErrorCode())
	}

	var currentUserID int64
	if principal := deliverycontext.GetPrincipal(c); principal != nil {
		currentUserID = principal.ID
	}

	output, err := h.uc.HandleCallback(c.Request().Context(), usecase.OAuthCallbackInput{
		State:         state,
		Code:          code,
		CurrentUserID: currentUserID,
		Meta:          clientMeta(c),
	})
	if err != nil {
		var appErr domainerrors.AppError
		if errors.As(err, &appErr) {
			return redirectWithError(c, "/", appErr.ErrorCode())
		}

		return errors.WithStack(err)
	}

	if output.Login != nil {
		h.cookies.SetAccess(c, output.Login.Tokens.AccessToken)
		h.cookies.SetRefresh(c, output.Login.Tokens.RefreshToken)
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"user":         userOrNil(output.Login),
		"pendingState": output.PendingState,
		"linked":       output.Linked,
		"next":         output.Next,
	}, "Callback processed successfully")
}

// CompleteSignup finishes a pending external signup with a chosen username
// and confirmed email.
func (h *OAuthHandler) CompleteSignup(c echo.Context) error {
	var req completeSignupRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid signup completion input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid signup completion input")
	}

	output, err := h.uc.CompleteSignup(c.Request().Context(), usecase.CompleteSignupInput{
		State:    req.State,
		Username: req.Username,
		Email:    req.Email,
		Meta:     clientMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.cookies.SetAccess(c, output.Tokens.AccessToken)
	h.cookies.SetRefresh(c, output.Tokens.RefreshToken)

	return response.Success(c, http.StatusCreated, map[string]any{
		"user":      toUserView(output.User),
		"sessionId": output.Tokens.SessionID.String(),
	}, "Signup completed successfully")
}

// ListIdentities returns the caller's linked identities.
func (h *OAuthHandler) ListIdentities(c echo.Context) error {
	principal := deliverycontext.GetPrincipal(c)
	if principal == nil {
		return response.Unauthorized(c, "UNAUTHENTICATED", "Authentication required")
	}

	identities, err := h.uc.ListIdentities(c.Request().Context(), principal.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	views := make([]identityView, 0, len(identities))
	for _, identity := range identities {
		views = append(views, identityView{
			Provider: string(identity.Provider),
			Email:    identity.Email,
		})
	}

	return response.Success(c, http.StatusOK, views, "Identities retrieved successfully")
}

// Unlink detaches a provider identity from the caller's account.
func (h *OAuthHandler) Unlink(c echo.Context) error {
	principal := deliverycontext.GetPrincipal(c)
	if principal == nil {
		return response.Unauthorized(c, "UNAUTHENTICATED", "Authentication required")
	}

	provider := entity.ProviderType(c.Param("provider"))
	if provider != entity.ProviderTypeGoogle {
		return response.BadRequest(c, "INVALID_INPUT", "Unsupported provider")
	}

	if err := h.uc.Unlink(c.Request().Context(), principal.ID, provider); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Identity unlinked"}, "Identity unlinked successfully")
}

// requireReauthedPrincipal demands an authenticated caller carrying a fresh
// step-up token, consumed here exactly as the reauth gate would.
func (h *OAuthHandler) requireReauthedPrincipal(c echo.Context) error {
	principal := deliverycontext.GetPrincipal(c)
	if principal == nil {
		return response.Unauthorized(c, "UNAUTHENTICATED", "Linking requires authentication")
	}

	token := ""
	if ck, err := c.Cookie(cookie.ReauthCookie); err == nil && ck.Value != "" {
		token = ck.Value
	} else {
		token = c.Request().Header.Get(middleware.HeaderXReauthToken)
	}
	if token == "" {
		return response.Forbidden(c, "REAUTH_REQUIRED", "Recent password confirmation required")
	}

	// Burned whether or not the flow completes.
	h.cookies.ClearReauth(c)

	return h.authUC.ConsumeReauth(c.Request().Context(), principal, token)
}

// redirectWithError sends the browser back with a machine-readable error
// code in the query string.
func redirectWithError(c echo.Context, target, code string) error {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}

	return c.Redirect(http.StatusSeeOther, target+sep+"error="+url.QueryEscape(code))
}

// sanitizeNext allows only relative paths, so the provider round-trip cannot
// be turned into an open redirect.
func sanitizeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}

	return next
}

func userOrNil(login *usecase.LoginOutput) *userView {
	if login == nil {
		return nil
	}

	return toUserView(login.User)
}
