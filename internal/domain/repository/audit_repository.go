package repository

import (
	"context"

	"bazaar/internal/domain/entity"
)

// AuditRepository persists administrative audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *entity.AdminAuditEntry) error
	ListByActor(ctx context.Context, actorUserID int64, limit int) ([]*entity.AdminAuditEntry, error)
	ListByTarget(ctx context.Context, targetKind, targetID string, limit int) ([]*entity.AdminAuditEntry, error)
}
