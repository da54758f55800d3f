package entity

import "time"

// AdminAuditEntry is an append-only fact about a privileged action.
// Writes are best-effort: failing to record one never fails the action.
type AdminAuditEntry struct {
	ID          int64
	ActorUserID int64
	Action      string
	TargetKind  string
	TargetID    string
	Metadata    string
	CreatedAt   time.Time
}
