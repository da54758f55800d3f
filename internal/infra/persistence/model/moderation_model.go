package model

import (
	"time"
)

// UserModerationModel mirrors the 'user_moderations' table. At most one row
// per user; absence means the account is in good standing.
type UserModerationModel struct {
	UserID         int64  `gorm:"primaryKey"`
	Status         string `gorm:"type:varchar(20);not null"`
	SuspendedUntil *time.Time
	Reason         string `gorm:"type:text"`
	UpdatedAt      time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserModerationModel) TableName() string {
	return "user_moderations"
}
