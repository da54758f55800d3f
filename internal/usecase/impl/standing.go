package impl

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/domain/repository"
)

// checkStandingTx enforces moderation status inside a transaction. Banned
// always fails, suspended fails until the deadline passes, and a lapsed
// suspension is deleted so the account heals back to good standing. Healing
// is best-effort: a failed delete is logged and the request proceeds; the
// next request retries it.
func checkStandingTx(ctx context.Context, logger *slog.Logger, moderationRepo repository.ModerationRepository, userID int64, now time.Time) error {
	record, err := moderationRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrModerationNotFound) {
			return nil
		}

		return errors.Wrap(err, "failed to find moderation record")
	}

	switch record.Status {
	case entity.ModerationBanned:
		return errors.Wrap(domainerrors.ErrAccountBanned, "account banned")
	case entity.ModerationSuspended:
		if record.SuspensionLapsed(now) {
			if err := moderationRepo.Delete(ctx, userID); err != nil {
				logger.Warn("Failed to clear lapsed suspension", slog.Int64("userID", userID), slog.Any("error", err))
			}

			return nil
		}

		return domainerrors.NewSuspensionError(record.SuspendedUntil)
	default:
		return nil
	}
}
