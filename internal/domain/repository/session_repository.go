package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/domain/entity"
	"bazaar/internal/errors"
)

// ErrSessionNotFound is returned when no session matches the lookup.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository defines persistence operations for refresh sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error

	// FindByIDForUpdate loads a session with a row-level lock so concurrent
	// refresh attempts against the same session serialize. Must be called
	// inside a transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Session, error)

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	FindActiveByUser(ctx context.Context, userID int64) ([]*entity.Session, error)

	// Rotate swaps the stored refresh hash and bumps expiry and last-use in
	// one update.
	Rotate(ctx context.Context, id uuid.UUID, newHash string, expiresAt, lastUsedAt time.Time) error

	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
	RevokeAllByUser(ctx context.Context, userID int64, at time.Time) error

	// DeleteExpiredBefore removes sessions whose expiry predates the cutoff
	// and returns how many were deleted.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
