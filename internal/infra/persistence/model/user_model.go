package model

import (
	"time"
)

// UserModel mirrors the 'users' table. PostgreSQL generates IDs via the
// bigint identity column.
type UserModel struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Email        string  `gorm:"type:varchar(255);unique;not null"`
	Username     string  `gorm:"type:varchar(50);unique;not null"`
	PasswordHash *string `gorm:"type:varchar(255)"`
	IsAdmin      bool    `gorm:"not null;default:false"`
	IsSuperadmin bool    `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Sessions   []SessionModel       `gorm:"foreignKey:UserID"`
	Identities []OAuthIdentityModel `gorm:"foreignKey:UserID"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
