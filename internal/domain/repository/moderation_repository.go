package repository

import (
	"context"

	"bazaar/internal/domain/entity"
	"bazaar/internal/errors"
)

// ErrModerationNotFound is returned when a user has no moderation record.
var ErrModerationNotFound = errors.New("moderation record not found")

// ModerationRepository defines persistence operations for moderation records.
type ModerationRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*entity.UserModeration, error)

	// Upsert writes the record, replacing any existing row for the user.
	Upsert(ctx context.Context, record *entity.UserModeration) error

	Delete(ctx context.Context, userID int64) error
}
