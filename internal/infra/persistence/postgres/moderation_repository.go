// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"bazaar/internal/domain/entity"
	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/domain/repository"
	"bazaar/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// moderationRepository implements the domain.ModerationRepository interface using GORM.
type moderationRepository struct {
	db *gorm.DB
}

// NewModerationRepository is the constructor for moderationRepository.
func NewModerationRepository(db *gorm.DB) repository.ModerationRepository {
	return &moderationRepository{db: db}
}

// FindByUserID retrieves the moderation record for a user, if any.
func (repo *moderationRepository) FindByUserID(ctx context.Context, userID int64) (*entity.UserModeration, error) {
	var recordM model.UserModerationModel
	if err := repo.db.WithContext(ctx).Where("user_id = ?", userID).First(&recordM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrModerationNotFound
		}

		return nil, errors.Wrap(err, "failed to find moderation record")
	}

	return toModerationDomain(&recordM), nil
}

// Upsert writes the moderation record, replacing any existing row for the user.
func (repo *moderationRepository) Upsert(ctx context.Context, record *entity.UserModeration) error {
	recordM := fromModerationDomain(record)

	err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(recordM).Error
	if err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to upsert moderation record")
	}

	return nil
}

// Delete removes the moderation record, restoring the user to good standing.
func (repo *moderationRepository) Delete(ctx context.Context, userID int64) error {
	err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.UserModerationModel{}).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete moderation record")
	}

	return nil
}

func toModerationDomain(m *model.UserModerationModel) *entity.UserModeration {
	return &entity.UserModeration{
		UserID:         m.UserID,
		Status:         entity.ModerationStatus(m.Status),
		SuspendedUntil: m.SuspendedUntil,
		Reason:         m.Reason,
		UpdatedAt:      m.UpdatedAt,
	}
}

func fromModerationDomain(r *entity.UserModeration) *model.UserModerationModel {
	return &model.UserModerationModel{
		UserID:         r.UserID,
		Status:         string(r.Status),
		SuspendedUntil: r.SuspendedUntil,
		Reason:         r.Reason,
		UpdatedAt:      r.UpdatedAt,
	}
}
