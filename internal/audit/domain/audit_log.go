package domain

import "time"

// AuditLog records one operator command.
type AuditLog struct {
	ID         string
	Actor      string // token subject of the operator
	Action     string // e.g. update_policy, unblock, create_block
	Resource   string // policy or block
	ResourceID string
	IP         string
	Metadata   string // JSON
	CreatedAt  time.Time
}
