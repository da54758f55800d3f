// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"
	"time"

	"bazaar/internal/domain/entity"
)

// SuspendUserInput defines the data required to suspend an account.
type SuspendUserInput struct {
	TargetUserID int64
	Until        *time.Time
	Reason       string
}

// AdminUsecase defines the interface for administrative account operations.
// Every mutation is attributed to the acting principal and recorded as an
// audit entry on a best-effort basis.
type AdminUsecase interface {
	// PromoteAdmin and DemoteAdmin toggle the admin flag. Superadmin only.
	PromoteAdmin(ctx context.Context, actor *entity.Principal, targetUserID int64) error
	DemoteAdmin(ctx context.Context, actor *entity.Principal, targetUserID int64) error

	SuspendUser(ctx context.Context, actor *entity.Principal, input SuspendUserInput) error
	BanUser(ctx context.Context, actor *entity.Principal, targetUserID int64, reason string) error

	// ReinstateUser clears the moderation record, restoring good standing.
	ReinstateUser(ctx context.Context, actor *entity.Principal, targetUserID int64) error

	// DeleteUser removes the account and revokes all of its sessions.
	DeleteUser(ctx context.Context, actor *entity.Principal, targetUserID int64) error

	ListAuditByTarget(ctx context.Context, actor *entity.Principal, targetKind, targetID string, limit int) ([]*entity.AdminAuditEntry, error)

	// ListAuditByActor returns recent audit entries recorded for one acting
	// administrator.
	ListAuditByActor(ctx context.Context, actor *entity.Principal, actorUserID int64, limit int) ([]*entity.AdminAuditEntry, error)
}
