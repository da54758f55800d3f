// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"
)

// User is the core identity row of the marketplace. Email is stored
// normalized to lowercase; PasswordHash is nil for accounts created
// through an external identity provider only.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash *string
	IsAdmin      bool
	IsSuperadmin bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the account can authenticate with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
