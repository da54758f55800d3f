// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"bazaar/internal/domain/entity"
)

// SessionUsecase defines the interface for session management operations.
type SessionUsecase interface {
	GetActiveSessions(ctx context.Context, userID int64) ([]*entity.Session, error)
	RevokeSession(ctx context.Context, userID int64, sessionID uuid.UUID) error
	RevokeAllOtherSessions(ctx context.Context, userID int64, currentSessionID uuid.UUID) error

	// CleanupExpired deletes expired sessions and one-shot OAuth rows past
	// their retention window. Returns how many rows were removed.
	CleanupExpired(ctx context.Context) (int64, error)
}
