// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/domain/repository"
	"bazaar/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sessionRepository implements the domain.SessionRepository interface using GORM.
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository is the constructor for sessionRepository.
func NewSessionRepository(db *gorm.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

// Create persists a new session row.
func (repo *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	sessionM := fromSessionDomain(session)

	if err := repo.db.WithContext(ctx).Create(sessionM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create session")
	}

	session.ID = sessionM.ID
	session.CreatedAt = sessionM.CreatedAt

	return nil
}

// FindByIDForUpdate loads a session under SELECT ... FOR UPDATE. Concurrent
// refresh attempts against the same session block here until the first
// transaction commits, so rotation happens at most once.
func (repo *sessionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	var sessionM model.SessionModel
	err := repo.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&sessionM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, errors.Wrap(err, "failed to lock session")
	}

	return toSessionDomain(&sessionM), nil
}

// FindByID retrieves a single session by its unique ID.
func (repo *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	var sessionM model.SessionModel
	if err := repo.db.WithContext(ctx).Where("id = ?", id).First(&sessionM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, errors.Wrap(err, "failed to find session by id")
	}

	return toSessionDomain(&sessionM), nil
}

// FindActiveByUser retrieves all live sessions for a user, newest first.
func (repo *sessionRepository) FindActiveByUser(ctx context.Context, userID int64) ([]*entity.Session, error) {
	var sessionModels []model.SessionModel
	err := repo.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("created_at DESC").
		Find(&sessionModels).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}

	sessions := make([]*entity.Session, 0, len(sessionModels))
	for i := range sessionModels {
		sessions = append(sessions, toSessionDomain(&sessionModels[i]))
	}

	return sessions, nil
}

// Rotate swaps the refresh hash and bumps expiry and last-use in one update.
func (repo *sessionRepository) Rotate(ctx context.Context, id uuid.UUID, newHash string, expiresAt, lastUsedAt time.Time) error {
	result := repo.db.WithContext(ctx).Model(&model.SessionModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"refresh_token_hash": newHash,
			"expires_at":         expiresAt,
			"last_used_at":       lastUsedAt,
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to rotate session")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// Revoke marks a session revoked. Revocation is terminal; the timestamp is
// only written once.
func (repo *sessionRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := repo.db.WithContext(ctx).Model(&model.SessionModel{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to revoke session")
	}

	return nil
}

// RevokeAllByUser revokes every live session the user has.
func (repo *sessionRepository) RevokeAllByUser(ctx context.Context, userID int64, at time.Time) error {
	err := repo.db.WithContext(ctx).Model(&model.SessionModel{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", at).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to revoke sessions")
	}

	return nil
}

// DeleteExpiredBefore removes sessions whose expiry predates the cutoff.
func (repo *sessionRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := repo.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&model.SessionModel{})
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete expired sessions")
	}

	return result.RowsAffected, nil
}

func toSessionDomain(m *model.SessionModel) *entity.Session {
	return &entity.Session{
		ID:               m.ID,
		UserID:           m.UserID,
		RefreshTokenHash: m.RefreshTokenHash,
		CreatedAt:        m.CreatedAt,
		LastUsedAt:       m.LastUsedAt,
		ExpiresAt:        m.ExpiresAt,
		RevokedAt:        m.RevokedAt,
		UserAgent:        m.UserAgent,
		IP:               m.IP,
	}
}

func fromSessionDomain(s *entity.Session) *model.SessionModel {
	return &model.SessionModel{
		ID:               s.ID,
		UserID:           s.UserID,
		RefreshTokenHash: s.RefreshTokenHash,
		CreatedAt:        s.CreatedAt,
		LastUsedAt:       s.LastUsedAt,
		ExpiresAt:        s.ExpiresAt,
		RevokedAt:        s.RevokedAt,
		UserAgent:        s.UserAgent,
		IP:               s.IP,
	}
}
