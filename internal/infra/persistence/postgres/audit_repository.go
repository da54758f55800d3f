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
)

// auditRepository implements the domain.AuditRepository interface using GORM.
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository is the constructor for auditRepository.
func NewAuditRepository(db *gorm.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

// Create persists an audit entry.
func (repo *auditRepository) Create(ctx context.Context, entry *entity.AdminAuditEntry) error {
	entryM := fromAuditDomain(entry)

	if err := repo.db.WithContext(ctx).Create(entryM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create audit entry")
	}

	entry.ID = entryM.ID
	entry.CreatedAt = entryM.CreatedAt

	return nil
}

// ListByActor retrieves recent entries written by one administrator.
func (repo *auditRepository) ListByActor(ctx context.Context, actorUserID int64, limit int) ([]*entity.AdminAuditEntry, error) {
	var entryModels []model.AdminAuditEntryModel
	err := repo.db.WithContext(ctx).
		Where("actor_user_id = ?", actorUserID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entryModels).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list audit entries by actor")
	}

	return toAuditDomainSlice(entryModels), nil
}

// ListByTarget retrieves recent entries concerning one target.
func (repo *auditRepository) ListByTarget(ctx context.Context, targetKind, targetID string, limit int) ([]*entity.AdminAuditEntry, error) {
	var entryModels []model.AdminAuditEntryModel
	err := repo.db.WithContext(ctx).
		Where("target_kind = ? AND target_id = ?", targetKind, targetID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entryModels).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list audit entries by target")
	}

	return toAuditDomainSlice(entryModels), nil
}

func toAuditDomainSlice(models []model.AdminAuditEntryModel) []*entity.AdminAuditEntry {
	entries := make([]*entity.AdminAuditEntry, 0, len(models))
	for i := range models {
		entries = append(entries, toAuditDomain(&models[i]))
	}

	return entries
}

func toAuditDomain(m *model.AdminAuditEntryModel) *entity.AdminAuditEntry {
	return &entity.AdminAuditEntry{
		ID:          m.ID,
		ActorUserID: m.ActorUserID,
		Action:      m.Action,
		TargetKind:  m.TargetKind,
		TargetID:    m.TargetID,
		Metadata:    m.Metadata,
		CreatedAt:   m.CreatedAt,
	}
}

func fromAuditDomain(e *entity.AdminAuditEntry) *model.AdminAuditEntryModel {
	return &model.AdminAuditEntryModel{
		ID:          e.ID,
		ActorUserID: e.ActorUserID,
		Action:      e.Action,
		TargetKind:  e.TargetKind,
		TargetID:    e.TargetID,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
}
