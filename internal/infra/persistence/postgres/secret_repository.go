// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	domainerrors "bazaar/internal/domain/errors"
	"bazaar/internal/domain/repository"
	"bazaar/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// secretRepository implements the domain.SecretRepository interface using GORM.
type secretRepository struct {
	db *gorm.DB
}

// NewSecretRepository is the constructor for secretRepository.
func NewSecretRepository(db *gorm.DB) repository.SecretRepository {
	return &secretRepository{db: db}
}

// Upsert writes the sealed value, replacing any existing secret of that name.
func (repo *secretRepository) Upsert(ctx context.Context, name, sealed string) error {
	secretM := &model.ServiceSecretModel{
		Name:   name,
		Sealed: sealed,
	}

	err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"sealed", "updated_at"}),
	}).Create(secretM).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to upsert secret")
	}

	return nil
}

// Find retrieves the sealed value stored under the name.
func (repo *secretRepository) Find(ctx context.Context, name string) (string, error) {
	var secretM model.ServiceSecretModel
	if err := repo.db.WithContext(ctx).Where("name = ?", name).First(&secretM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", repository.ErrSecretNotFound
		}

		return "", errors.Wrap(err, "failed to find secret")
	}

	return secretM.Sealed, nil
}

// Delete removes the secret stored under the name.
func (repo *secretRepository) Delete(ctx context.Context, name string) error {
	result := repo.db.WithContext(ctx).
		Where("name = ?", name).
		Delete(&model.ServiceSecretModel{})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete secret")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSecretNotFound
	}

	return nil
}

// ListNames retrieves the names of all stored secrets.
func (repo *secretRepository) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	err := repo.db.WithContext(ctx).Model(&model.ServiceSecretModel{}).
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list secret names")
	}

	return names, nil
}
