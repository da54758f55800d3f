package model

import (
	"time"
)

// AdminAuditEntryModel mirrors the 'admin_audit_entries' table.
type AdminAuditEntryModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	ActorUserID int64  `gorm:"not null;index"`
	Action      string `gorm:"type:varchar(100);not null"`
	TargetKind  string `gorm:"type:varchar(50);not null;index:idx_audit_target"`
	TargetID    string `gorm:"type:varchar(100);not null;index:idx_audit_target"`
	Metadata    string `gorm:"type:text"`
	CreatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (AdminAuditEntryModel) TableName() string {
	return "admin_audit_entries"
}

// ServiceSecretModel mirrors the 'service_secrets' table. Values are stored
// sealed; the database never sees plaintext.
type ServiceSecretModel struct {
	Name      string `gorm:"type:varchar(255);primaryKey"`
	Sealed    string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (ServiceSecretModel) TableName() string {
	return "service_secrets"
}
