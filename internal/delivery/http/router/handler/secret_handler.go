package handler

import (
	"log/slog"
	"net/http"

	"bazaar/internal/delivery/http/response"
	"bazaar/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// SecretHandler holds dependencies for the sealed service-secret handlers.
type SecretHandler struct {
	uc     usecase.SecretUsecase
	logger *slog.Logger
}

// NewSecretHandler is the constructor for SecretHandler, injected by Fx.
func NewSecretHandler(uc usecase.SecretUsecase, logger *slog.Logger) *SecretHandler {
	return &SecretHandler{
		uc:     uc,
		logger: logger,
	}
}

type putSecretRequest struct {
	Value string `json:"value" validate:"required"`
}

// PutSecret stores a secret encrypted at rest, replacing any previous value.
func (h *SecretHandler) PutSecret(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return response.BadRequest(c, "INVALID_INPUT", "Secret name is required")
	}

	var req putSecretRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid secret input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid secret input")
	}

	if err := h.uc.PutSecret(c.Request().Context(), name, []byte(req.Value)); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"name": name}, "Secret stored successfully")
}

// GetSecret returns the decrypted secret value.
func (h *SecretHandler) GetSecret(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return response.BadRequest(c, "INVALID_INPUT", "Secret name is required")
	}

	plaintext, err := h.uc.GetSecret(c.Request().Context(), name)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{
		"name":  name,
		"value": string(plaintext),
	}, "Secret retrieved successfully")
}

// DeleteSecret removes a stored secret.
func (h *SecretHandler) DeleteSecret(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return response.BadRequest(c, "INVALID_INPUT", "Secret name is required")
	}

	if err := h.uc.DeleteSecret(c.Request().Context(), name); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"name": name}, "Secret deleted successfully")
}

// ListSecretNames returns the names of stored secrets, never their values.
func (h *SecretHandler) ListSecretNames(c echo.Context) error {
	names, err := h.uc.ListSecretNames(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, names, "Secret names retrieved successfully")
}
