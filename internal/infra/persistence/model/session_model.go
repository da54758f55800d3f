package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionModel mirrors the 'sessions' table. One row per device session;
// the stored hash tracks the currently valid refresh token.
type SessionModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID           int64     `gorm:"not null;index"`
	RefreshTokenHash string    `gorm:"type:varchar(64);not null;index"`
	CreatedAt        time.Time
	LastUsedAt       time.Time  `gorm:"not null"`
	ExpiresAt        time.Time  `gorm:"not null;index"`
	RevokedAt        *time.Time
	UserAgent        string `gorm:"type:varchar(512)"`
	IP               string `gorm:"type:varchar(64)"`
}

// TableName explicitly sets the table name for GORM.
func (SessionModel) TableName() string {
	return "sessions"
}
