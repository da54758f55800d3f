// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	deliverycontext "bazaar/internal/delivery/context"
	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/domain/repository"
	"bazaar/internal/usecase"

	"github.com/pkg/errors"
)

// adminService implements the AdminUsecase interface.
type adminService struct {
	txManager repository.TransactionManager
	logger    *slog.Logger

	now func() time.Time
}

// NewAdminService is the constructor for adminService.
func NewAdminService(
	txManager repository.TransactionManager,
	logger *slog.Logger,
) usecase.AdminUsecase {
	return &adminService{
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *adminService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// PromoteAdmin grants the admin flag. Superadmin only.
func (srv *adminService) PromoteAdmin(ctx context.Context, actor *entity.Principal, targetUserID int64) error {
	return srv.setAdminFlag(ctx, actor, targetUserID, true, "admin.promote")
}

// DemoteAdmin removes the admin flag. Superadmin only. A superadmin cannot
// be demoted.
func (srv *adminService) DemoteAdmin(ctx context.Context, actor *entity.Principal, targetUserID int64) error {
	return srv.setAdminFlag(ctx, actor, targetUserID, false, "admin.demote")
}

func (srv *adminService) setAdminFlag(ctx context.Context, actor *entity.Principal, targetUserID int64, isAdmin bool, action string) error {
	if !actor.IsSuperadmin {
		return errors.Wrap(domainerrors.ErrForbidden, "superadmin required")
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		target, err := userRepo.FindByID(ctx, targetUserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrUserNotFound, "target not found")
			}

			return errors.Wrap(err, "failed to find target user")
		}

		if target.IsSuperadmin {
			return errors.Wrap(domainerrors.ErrForbidden, "superadmin role cannot be changed")
		}

		return errors.Wrap(userRepo.UpdateRoles(ctx, target.ID, isAdmin, false), "failed to update roles")
	})
	if err != nil {
		srv.log(ctx).Warn("Role change failed", slog.String("action", action), slog.Int64("targetID", targetUserID), slog.Any("error", err))

		return err
	}

	srv.writeAudit(ctx, actor, action, targetUserID, nil)
	srv.log(ctx).Info("Role changed", slog.String("action", action), slog.Int64("actorID", actor.ID), slog.Int64("targetID", targetUserID))

	return nil
}

// SuspendUser sets a suspended moderation record and revokes the target's
// sessions.
func (srv *adminService) SuspendUser(ctx context.Context, actor *entity.Principal, input usecase.SuspendUserInput) error {
	return srv.applyModeration(ctx, actor, input.TargetUserID, &entity.UserModeration{
		UserID:         input.TargetUserID,
		Status:         entity.ModerationSuspended,
		SuspendedUntil: input.Until,
		Reason:         input.Reason,
	}, "admin.suspend", map[string]any{"until": input.Until, "reason": input.Reason})
}

// BanUser sets a banned moderation record and revokes the target's sessions.
func (srv *adminService) BanUser(ctx context.Context, actor *entity.Principal, targetUserID int64, reason string) error {
	return srv.applyModeration(ctx, actor, targetUserID, &entity.UserModeration{
		UserID: targetUserID,
		Status: entity.ModerationBanned,
		Reason: reason,
	}, "admin.ban", map[string]any{"reason": reason})
}

func (srv *adminService) applyModeration(ctx context.Context, actor *entity.Principal, targetUserID int64, record *entity.UserModeration, action string, metadata map[string]any) error {
	if err := srv.requireAdminOverTarget(actor, targetUserID); err != nil {
		return err
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		target, err := repoFactory.UserRepo().FindByID(ctx, targetUserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrUserNotFound, "target not found")
			}

			return errors.Wrap(err, "failed to find target user")
		}

		// Admins moderate regular accounts; only a superadmin can touch an
		// admin, and nobody moderates a superadmin.
		if target.IsSuperadmin || (target.IsAdmin && !actor.IsSuperadmin) {
			return errors.Wrap(domainerrors.ErrForbidden, "target outranks actor")
		}

		record.UpdatedAt = srv.now()
		if err := repoFactory.ModerationRepo().Upsert(ctx, record); err != nil {
			return errors.Wrap(err, "failed to write moderation record")
		}

		return errors.Wrap(repoFactory.SessionRepo().RevokeAllByUser(ctx, targetUserID, srv.now()), "failed to revoke target sessions")
	})
	if err != nil {
		srv.log(ctx).Warn("Moderation failed", slog.String("action", action), slog.Int64("targetID", targetUserID), slog.Any("error", err))

		return err
	}

	srv.writeAudit(ctx, actor, action, targetUserID, metadata)
	srv.log(ctx).Info("Moderation applied", slog.String("action", action), slog.Int64("actorID", actor.ID), slog.Int64("targetID", targetUserID))

	return nil
}

// ReinstateUser clears the moderation record.
func (srv *adminService) ReinstateUser(ctx context.Context, actor *entity.Principal, targetUserID int64) error {
	if err := srv.requireAdminOverTarget(actor, targetUserID); err != nil {
		return err
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return errors.Wrap(repoFactory.ModerationRepo().Delete(ctx, targetUserID), "failed to clear moderation record")
	})
	if err != nil {
		srv.log(ctx).Warn("Reinstate failed", slog.Int64("targetID", targetUserID), slog.Any("error", err))

		return err
	}

	srv.writeAudit(ctx, actor, "admin.reinstate", targetUserID, nil)
	srv.log(ctx).Info("User reinstated", slog.Int64("actorID", actor.ID), slog.Int64("targetID", targetUserID))

	return nil
}

// DeleteUser removes the account after revoking all of its sessions.
func (srv *adminService) DeleteUser(ctx context.Context, actor *entity.Principal, targetUserID int64) error {
	if err := srv.requireAdminOverTarget(actor, targetUserID); err != nil {
		return err
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		target, err := repoFactory.UserRepo().FindByID(ctx, targetUserID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrUserNotFound, "target not found")
			}

			return errors.Wrap(err, "failed to find target user")
		}

		if target.IsSuperadmin || (target.IsAdmin && !actor.IsSuperadmin) {
			return errors.Wrap(domainerrors.ErrForbidden, "target outranks actor")
		}

		if err := repoFactory.SessionRepo().RevokeAllByUser(ctx, targetUserID, srv.now()); err != nil {
			return errors.Wrap(err, "failed to revoke target sessions")
		}

		return errors.Wrap(repoFactory.UserRepo().Delete(ctx, targetUserID), "failed to delete user")
	})
	if err != nil {
		srv.log(ctx).Warn("User deletion failed", slog.Int64("targetID", targetUserID), slog.Any("error", err))

		return err
	}

	srv.writeAudit(ctx, actor, "admin.delete_user", targetUserID, nil)
	srv.log(ctx).Info("User deleted", slog.Int64("actorID", actor.ID), slog.Int64("targetID", targetUserID))

	return nil
}

// ListAuditByTarget returns recent audit entries for one target.
func (srv *adminService) ListAuditByTarget(ctx context.Context, actor *entity.Principal, targetKind, targetID string, limit int) ([]*entity.AdminAuditEntry, error) {
	return srv.listAudit(ctx, actor, limit, func(repoFactory repository.RepositoryFactory, limit int) ([]*entity.AdminAuditEntry, error) {
		return repoFactory.AuditRepo().ListByTarget(ctx, targetKind, targetID, limit)
	})
}

// ListAuditByActor returns recent audit entries recorded for one acting
// administrator.
func (srv *adminService) ListAuditByActor(ctx context.Context, actor *entity.Principal, actorUserID int64, limit int) ([]*entity.AdminAuditEntry, error) {
	return srv.listAudit(ctx, actor, limit, func(repoFactory repository.RepositoryFactory, limit int) ([]*entity.AdminAuditEntry, error) {
		return repoFactory.AuditRepo().ListByActor(ctx, actorUserID, limit)
	})
}

func (srv *adminService) listAudit(ctx context.Context, actor *entity.Principal, limit int, query func(repository.RepositoryFactory, int) ([]*entity.AdminAuditEntry, error)) ([]*entity.AdminAuditEntry, error) {
	if !actor.IsAdmin && !actor.IsSuperadmin {
		return nil, errors.Wrap(domainerrors.ErrForbidden, "admin required")
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var entries []*entity.AdminAuditEntry
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		entries, err = query(repoFactory, limit)

		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list audit entries")
	}

	return entries, nil
}

// requireAdminOverTarget rejects non-admin actors and self-moderation.
func (srv *adminService) requireAdminOverTarget(actor *entity.Principal, targetUserID int64) error {
	if !actor.IsAdmin && !actor.IsSuperadmin {
		return errors.Wrap(domainerrors.ErrForbidden, "admin required")
	}
	if actor.ID == targetUserID {
		return errors.Wrap(domainerrors.ErrForbidden, "cannot moderate own account")
	}

	return nil
}

// writeAudit records the action in its own transaction after the mutation
// has committed. Best-effort: an audit failure is logged but never fails
// the administrative action itself.
func (srv *adminService) writeAudit(ctx context.Context, actor *entity.Principal, action string, targetUserID int64, metadata map[string]any) {
	entry := &entity.AdminAuditEntry{
		ActorUserID: actor.ID,
		Action:      action,
		TargetKind:  "user",
		TargetID:    strconv.FormatInt(targetUserID, 10),
		CreatedAt:   srv.now(),
	}
	if metadata != nil {
		if encoded, err := json.Marshal(metadata); err == nil {
			entry.Metadata = string(encoded)
		}
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.AuditRepo().Create(ctx, entry)
	})
	if err != nil {
		srv.log(ctx).Error("Audit write failed", slog.String("action", action), slog.Any("error", err))
	}
}
