package domain

import "time"

// Block is a time-boxed restriction on a user.
type Block struct {
	ID            string
	UserID        string
	Reason        string
	BlockedUntil  time.Time
	AddressCount  int  // distinct addresses observed when the block was imposed
	SystemImposed bool // false for operator-created blocks
	Active        bool // false once lifted; expiry does not clear it
	CreatedAt     time.Time
	LiftedAt      *time.Time
	LiftedBy      string
}

// IsEffective reports whether the block restricts the user at now.
// A stored active flag alone is not enough: the block also has to be unexpired.
func (b *Block) IsEffective(now time.Time) bool {
	return b != nil && b.Active && b.BlockedUntil.After(now)
}

// State names the block's effective state at now: active, expired or lifted.
func (b *Block) State(now time.Time) string {
	switch {
	case b.IsEffective(now):
		return "active"
	case b.Active:
		return "expired"
	default:
		return "lifted"
	}
}
