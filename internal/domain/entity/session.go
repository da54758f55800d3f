package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session anchors one logical login. The session ID is the `sid` claim of
// every token minted for it; only a one-way hash of the current refresh
// token is ever stored, so a database read alone cannot yield a usable
// credential.
type Session struct {
	ID               uuid.UUID
	UserID           int64
	RefreshTokenHash string
	CreatedAt        time.Time
	LastUsedAt       time.Time
	ExpiresAt        time.Time
	RevokedAt        *time.Time
	UserAgent        string
	IP               string
}

// Revoked reports whether the session has reached its terminal state.
// A revoked session is permanently dead and is never reused.
func (s *Session) Revoked() bool {
	return s.RevokedAt != nil
}

// Expired reports whether the session's lifetime has elapsed at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// ClientMeta carries per-request client attribution recorded on sessions
// and external-login attempts for audit purposes.
type ClientMeta struct {
	UserAgent string
	IP        string
}
