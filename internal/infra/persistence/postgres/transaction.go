// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"bazaar/internal/domain/repository"
	"bazaar/internal/errors"

	"gorm.io/gorm"
)

// gormTransactionManager implements the domain's TransactionManager on GORM.
type gormTransactionManager struct {
	db *gorm.DB
}

// NewTransactionManager builds the TransactionManager fx provides to the
// usecase layer.
func NewTransactionManager(db *gorm.DB) repository.TransactionManager {
	return &gormTransactionManager{db: db}
}

// Execute runs fn inside one database transaction. fn receives a factory
// whose repositories are all bound to that transaction; any error from fn
// rolls the whole unit back.
func (tm *gormTransactionManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	tx := tm.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "begin transaction")
	}

	// A panic inside fn must not leak an open transaction.
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&gormRepositoryFactory{tx: tx}); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return errors.Wrapf(err, "transaction rollback also failed: %v", rbErr)
		}
		return err
	}

	return errors.Wrap(tx.Commit().Error, "commit transaction")
}

// gormRepositoryFactory hands out repositories bound to a single open
// transaction. A *gorm.DB returned by Begin carries the tx connection.
type gormRepositoryFactory struct {
	tx *gorm.DB
}

func (f *gormRepositoryFactory) UserRepo() repository.UserRepository {
	return NewUserRepository(f.tx)
}

func (f *gormRepositoryFactory) SessionRepo() repository.SessionRepository {
	return NewSessionRepository(f.tx)
}

func (f *gormRepositoryFactory) ModerationRepo() repository.ModerationRepository {
	return NewModerationRepository(f.tx)
}

func (f *gormRepositoryFactory) OAuthStateRepo() repository.OAuthStateRepository {
	return NewOAuthStateRepository(f.tx)
}

func (f *gormRepositoryFactory) OAuthPendingRepo() repository.OAuthPendingRepository {
	return NewOAuthPendingRepository(f.tx)
}

func (f *gormRepositoryFactory) OAuthIdentityRepo() repository.OAuthIdentityRepository {
	return NewOAuthIdentityRepository(f.tx)
}

func (f *gormRepositoryFactory) AuditRepo() repository.AuditRepository {
	return NewAuditRepository(f.tx)
}

func (f *gormRepositoryFactory) SecretRepo() repository.SecretRepository {
	return NewSecretRepository(f.tx)
}
