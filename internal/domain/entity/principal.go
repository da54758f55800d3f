package entity

import "github.com/google/uuid"

// Principal is the verified identity attached to a request after the auth
// guard has checked the access token, the session, and moderation standing.
// It is threaded through handlers as an explicit typed context value, never
// by mutating a shared request object.
type Principal struct {
	ID           int64
	Email        string
	Username     string
	IsAdmin      bool
	IsSuperadmin bool
	SessionID    uuid.UUID
}
