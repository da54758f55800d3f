package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	deliverycontext "bazaar/internal/delivery/context"
	"bazaar/internal/delivery/http/response"
	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AdminHandler holds dependencies for administrative handlers.
type AdminHandler struct {
	uc     usecase.AdminUsecase
	logger *slog.Logger
}

// NewAdminHandler is the constructor for AdminHandler, injected by Fx.
func NewAdminHandler(uc usecase.AdminUsecase, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		uc:     uc,
		logger: logger,
	}
}

type suspendRequest struct {
	Until  *time.Time `json:"until"`
	Reason string     `json:"reason" validate:"required"`
}

type banRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// auditView is the public shape of an audit entry.
type auditView struct {
	ID          int64     `json:"id"`
	ActorUserID int64     `json:"actorUserId"`
	Action      string    `json:"action"`
	TargetKind  string    `json:"targetKind"`
	TargetID    string    `json:"targetId"`
	Metadata    string    `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toAuditView(entry *entity.AdminAuditEntry) auditView {
	return auditView{
		ID:          entry.ID,
		ActorUserID: entry.ActorUserID,
		Action:      entry.Action,
		TargetKind:  entry.TargetKind,
		TargetID:    entry.TargetID,
		Metadata:    entry.Metadata,
		CreatedAt:   entry.CreatedAt,
	}
}

// PromoteAdmin grants the admin flag to the target account.
func (h *AdminHandler) PromoteAdmin(c echo.Context) error {
	actor, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}

	if err := h.uc.PromoteAdmin(c.Request().Context(), actor, targetID); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "User promoted"}, "User promoted successfully")
}

// DemoteAdmin removes the admin flag from the target account.
func (h *AdminHandler) DemoteAdmin(c echo.Context) error {
	actor, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}

	if err := h.uc.DemoteAdmin(c.Request().Context(), actor, targetID); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "User demoted"}, "User demoted successfully")
}

// SuspendUser suspends the target account until the given deadline.
func (h *AdminHandler) SuspendUser(c echo.Context) error {
	actor, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}

	var req suspendRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid suspension input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid suspension input")
	}

	err = h.uc.SuspendUser(c.Request().Context(), actor, usecase.SuspendUserInput{
		TargetUserID: targetID,
		Until:        req.Until,
		Reason:       req.Reason,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "User suspended"}, "User suspended successfully")
}

// BanUser permanently bans the target account.
func (h *AdminHandler) BanUser(c echo.Context) error {
	actor, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}

	var req banRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid ban input")
	}
	if err := c.Validate(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid ban input")
	}

	if err := h.uc.BanUser(c.Request().Context(), actor, targetID, req.Reason); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "User banned"}, "User banned successfully")
}

// ReinstateUser clears the target account's moderation record.
func (h *AdminHandler) ReinstateUser(c echo.Context) error {
	actor, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}

	if err := h.uc.ReinstateUser(c.Request().Context(), actor, targetID); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "User reinstated"}, "User reinstated successfully")
}

// DeleteUser removes the target account and revokes all of its sessions.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	actor, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}

	if err := h.uc.DeleteUser(c.Request().Context(), actor, targetID); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "User deleted"}, "User deleted successfully")
}

// ListAudit returns audit entries newest first, filtered either by target
// (targetKind + targetId) or by acting administrator (actorId).
func (h *AdminHandler) ListAudit(c echo.Context) error {
	actor := deliverycontext.GetPrincipal(c)
	if actor == nil {
		return response.Unauthorized(c, "UNAUTHENTICATED", "Authentication required")
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			return response.BadRequest(c, "INVALID_INPUT", "Invalid limit")
		}
		limit = parsed
	}

	var entries []*entity.AdminAuditEntry
	var err error
	switch {
	case c.QueryParam("actorId") != "":
		actorID, parseErr := strconv.ParseInt(c.QueryParam("actorId"), 10, 64)
		if parseErr != nil || actorID <= 0 {
			return response.BadRequest(c, "INVALID_INPUT", "Invalid actorId")
		}
		entries, err = h.uc.ListAuditByActor(c.Request().Context(), actor, actorID, limit)
	case c.QueryParam("targetKind") != "" && c.QueryParam("targetId") != "":
		entries, err = h.uc.ListAuditByTarget(c.Request().Context(), actor, c.QueryParam("targetKind"), c.QueryParam("targetId"), limit)
	default:
		return response.BadRequest(c, "INVALID_INPUT", "Either actorId or targetKind and targetId are required")
	}
	if err != nil {
		return errors.WithStack(err)
	}

	views := make([]auditView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, toAuditView(entry))
	}

	return response.Success(c, http.StatusOK, views, "Audit entries retrieved successfully")
}

func (h *AdminHandler) actorAndTarget(c echo.Context) (*entity.Principal, int64, error) {
	actor := deliverycontext.GetPrincipal(c)
	if actor == nil {
		return nil, 0, errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || targetID <= 0 {
		return nil, 0, domainerrors.ErrValidationFailed.WrapMessage("invalid user ID")
	}

	return actor, targetID, nil
}
