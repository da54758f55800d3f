// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "bazaar/internal/delivery/context"
	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/domain/repository"
	"bazaar/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	txManager repository.TransactionManager
	logger    *slog.Logger

	now func() time.Time
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(
	txManager repository.TransactionManager,
	logger *slog.Logger,
) usecase.SessionUsecase {
	return &sessionService{
		txManager: txManager,
		logger:    logger,
		now:       time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// GetActiveSessions retrieves all live sessions for a user.
func (srv *sessionService) GetActiveSessions(ctx context.Context, userID int64) ([]*entity.Session, error) {
	var sessions []*entity.Session

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		sessions, err = repoFactory.SessionRepo().FindActiveByUser(ctx, userID)

		return err
	})
	if err != nil {
		srv.log(ctx).Error("Failed to get active sessions", slog.Any("error", err), slog.Int64("userID", userID))

		return nil, errors.Wrap(err, "failed to get active sessions")
	}

	srv.log(ctx).Debug("Retrieved active sessions", slog.Int64("userID", userID), slog.Int("count", len(sessions)))

	return sessions, nil
}

// RevokeSession revokes one session after verifying ownership.
func (srv *sessionService) RevokeSession(ctx context.Context, userID int64, sessionID uuid.UUID) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sessionRepo := repoFactory.SessionRepo()

		session, err := sessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return errors.Wrap(domainerrors.ErrNotFound, "session not found")
			}

			return errors.Wrap(err, "failed to find session")
		}

		if session.UserID != userID {
			return errors.Wrap(domainerrors.ErrForbidden, "session does not belong to user")
		}

		return sessionRepo.Revoke(ctx, sessionID, srv.now())
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to revoke session", slog.Any("error", err), slog.Int64("userID", userID), slog.Any("sessionID", sessionID))

		return err
	}

	srv.log(ctx).Info("Session revoked", slog.Int64("userID", userID), slog.Any("sessionID", sessionID))

	return nil
}

// RevokeAllOtherSessions revokes every session except the current one.
func (srv *sessionService) RevokeAllOtherSessions(ctx context.Context, userID int64, currentSessionID uuid.UUID) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		sessionRepo := repoFactory.SessionRepo()

		sessions, err := sessionRepo.FindActiveByUser(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to list sessions")
		}

		now := srv.now()
		for _, session := range sessions {
			if session.ID == currentSessionID {
				continue
			}
			if err := sessionRepo.Revoke(ctx, session.ID, now); err != nil {
				return errors.Wrap(err, "failed to revoke session")
			}
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to revoke other sessions", slog.Any("error", err), slog.Int64("userID", userID))

		return err
	}

	srv.log(ctx).Info("Other sessions revoked", slog.Int64("userID", userID))

	return nil
}

// CleanupExpired removes expired sessions and stale one-shot OAuth rows.
func (srv *sessionService) CleanupExpired(ctx context.Context) (int64, error) {
	var total int64

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		cutoff := srv.now()

		removed, err := repoFactory.SessionRepo().DeleteExpiredBefore(ctx, cutoff)
		if err != nil {
			return errors.Wrap(err, "failed to delete expired sessions")
		}
		total += removed

		removed, err = repoFactory.OAuthStateRepo().DeleteExpiredBefore(ctx, cutoff)
		if err != nil {
			return errors.Wrap(err, "failed to delete expired oauth states")
		}
		total += removed

		removed, err = repoFactory.OAuthPendingRepo().DeleteExpiredBefore(ctx, cutoff)
		if err != nil {
			return errors.Wrap(err, "failed to delete expired oauth pendings")
		}
		total += removed

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Cleanup failed", slog.Any("error", err))

		return 0, err
	}

	if total > 0 {
		srv.log(ctx).Info("Cleanup completed", slog.Int64("removed", total))
	}

	return total, nil
}
