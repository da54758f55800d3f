package entity

import "time"

// ModerationStatus is the account standing assigned by marketplace moderators.
type ModerationStatus string

const (
	// ModerationActive is the default standing; the account is unrestricted.
	ModerationActive ModerationStatus = "active"

	// ModerationSuspended blocks the account until SuspendedUntil passes.
	ModerationSuspended ModerationStatus = "suspended"

	// ModerationBanned blocks the account permanently.
	ModerationBanned ModerationStatus = "banned"
)

// UserModeration is the at-most-one-per-user moderation row. A suspension
// with SuspendedUntil in the past heals back to active on the next
// authenticated request.
type UserModeration struct {
	UserID         int64
	Status         ModerationStatus
	SuspendedUntil *time.Time
	Reason         string
	UpdatedAt      time.Time
}

// SuspensionLapsed reports whether a timed suspension has run out.
func (m *UserModeration) SuspensionLapsed(now time.Time) bool {
	return m.Status == ModerationSuspended && m.SuspendedUntil != nil && !m.SuspendedUntil.After(now)
}
