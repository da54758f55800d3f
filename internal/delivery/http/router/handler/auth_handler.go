package handler

import (
	"log/slog"
	"net/http"

	deliverycontext "bazaar/internal/delivery/context"
	"bazaar/internal/delivery/http/cookie"
	"bazaar/internal/delivery/http/response"
	"bazaar/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AuthHandler holds dependencies for credential and session handlers.
type AuthHandler struct {
	uc      usecase.AuthUsecase
	cookies *cookie.Manager
	logger  *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(uc usecase.AuthUsecase, cookies *cookie.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		uc:      uc,
		cookies: cookies,
		logger:  logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type stepUpRequest struct {
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// authView pairs the public user with its freshly minted tokens. Tokens also
// ride in cookies for browser clients.
type authView struct {
	User         *userView `json:"user"`
	SessionID    string    `json:"sessionId"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
}

// Register handles the account registration request.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}

	output, err := h.uc.Register(c.Request().Context(), usecase.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Meta:     clientMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.setSessionCookies(c, output.Tokens)

	return response.Success(c, http.StatusCreated, h.toAuthView(output), "User registered successfully")
}

// Login handles the password login request.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}

	output, err := h.uc.Login(c.Request().Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Meta:     clientMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.setSessionCookies(c, output.Tokens)

	return response.Success(c, http.StatusOK, h.toAuthView(output), "Login successful")
}

// Refresh rotates the refresh token and reissues the pair. A stale token
// kills the session, so the cookies are cleared on any failure.
func (h *AuthHandler) Refresh(c echo.Context) error {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		return response.Unauthorized(c, "UNAUTHENTICATED", "Missing refresh token")
	}

	tokens, err := h.uc.Refresh(c.Request().Context(), refreshToken, clientMeta(c))
	if err != nil {
		h.cookies.ClearSession(c)

		return errors.WithStack(err)
	}

	h.setSessionCookies(c, tokens)

	return response.Success(c, http.StatusOK, authView{
		SessionID:    tokens.SessionID.String(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "Token refreshed successfully")
}

// Logout revokes the session behind the presented refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	refreshToken := h.extractRefreshToken(c)

	h.cookies.ClearSession(c)

	if refreshToken != "" {
		if err := h.uc.Logout(c.Request().Context(), refreshToken); err != nil {
			return errors.WithStack(err)
		}
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Successfully logged out"}, "Logout successful")
}

// StepUp re-verifies the password and issues a single-use reauth token.
func (h *AuthHandler) StepUp(c echo.Context) error {
	principal := deliverycontext.GetPrincipal(c)
	if principal == nil {
		return response.Unauthorized(c, "UNAUTHENTICATED", "Authentication required")
	}

	var req stepUpRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid step-up input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid step-up input")
	}

	token, err := h.uc.StepUp(c.Request().Context(), principal, req.Password)
	if err != nil {
		return errors.WithStack(err)
	}

	h.cookies.SetReauth(c, token)

	return response.Success(c, http.StatusOK, map[string]string{"reauthToken": token}, "Password confirmed")
}

// ChangePassword replaces the password after verifying the current one.
// Every other session of the account is revoked.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	principal := deliverycontext.GetPrincipal(c)
	if principal == nil {
		return response.Unauthorized(c, "UNAUTHENTICATED", "Authentication required")
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid change password input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid change password input")
	}

	err := h.uc.ChangePassword(c.Request().Context(), principal, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Password changed"}, "Password changed successfully")
}

func (h *AuthHandler) toAuthView(output *usecase.LoginOutput) authView {
	return authView{
		User:         toUserView(output.User),
		SessionID:    output.Tokens.SessionID.String(),
		AccessToken:  output.Tokens.AccessToken,
		RefreshToken: output.Tokens.RefreshToken,
	}
}

func (h *AuthHandler) setSessionCookies(c echo.Context, tokens *usecase.AuthTokens) {
	h.cookies.SetAccess(c, tokens.AccessToken)
	h.cookies.SetRefresh(c, tokens.RefreshToken)
}

// extractRefreshToken reads the refresh token from the scoped cookie first,
// then from the body for non-browser clients.
func (h *AuthHandler) extractRefreshToken(c echo.Context) string {
	if ck, err := c.Cookie(cookie.RefreshCookie); err == nil && ck.Value != "" {
		return ck.Value
	}

	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return ""
	}

	return req.RefreshToken
}
