package model

import (
	"time"
)

// OAuthStateModel mirrors the 'oauth_states' table. One row per authorization
// round-trip; ConsumedAt marks the state as spent.
type OAuthStateModel struct {
	State        string `gorm:"type:varchar(128);primaryKey"`
	Provider     string `gorm:"type:varchar(50);not null"`
	Intent       string `gorm:"type:varchar(20);not null"`
	Next         string `gorm:"type:varchar(512)"`
	PKCEVerifier string `gorm:"type:varchar(128);not null"`
	CreatedAt    time.Time
	ExpiresAt    time.Time `gorm:"not null;index"`
	ConsumedAt   *time.Time
	UserAgent    string `gorm:"type:varchar(512)"`
	IP           string `gorm:"type:varchar(64)"`
}

// TableName explicitly sets the table name for GORM.
func (OAuthStateModel) TableName() string {
	return "oauth_states"
}

// OAuthPendingModel mirrors the 'oauth_pendings' table, holding provider
// profiles for signups awaiting completion.
type OAuthPendingModel struct {
	State          string `gorm:"type:varchar(128);primaryKey"`
	Provider       string `gorm:"type:varchar(50);not null"`
	ProviderUserID string `gorm:"type:varchar(255);not null"`
	ProfileJSON    string `gorm:"type:text;not null"`
	CreatedAt      time.Time
	ExpiresAt      time.Time `gorm:"not null;index"`
}

// TableName explicitly sets the table name for GORM.
func (OAuthPendingModel) TableName() string {
	return "oauth_pendings"
}

// OAuthIdentityModel mirrors the 'oauth_identities' table linking provider
// accounts to users.
type OAuthIdentityModel struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	UserID         int64  `gorm:"not null;index;uniqueIndex:idx_identity_user_provider"`
	Provider       string `gorm:"type:varchar(50);not null;uniqueIndex:idx_identity_provider_provider_user_id;uniqueIndex:idx_identity_user_provider"`
	ProviderUserID string `gorm:"type:varchar(255);not null;uniqueIndex:idx_identity_provider_provider_user_id"`
	Email          string `gorm:"type:varchar(255)"`
	CreatedAt      time.Time
}

// TableName explicitly sets the table name for GORM.
func (OAuthIdentityModel) TableName() string {
	return "oauth_identities"
}
