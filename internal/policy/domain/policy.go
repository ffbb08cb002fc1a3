package domain

import (
	"errors"
	"time"
)

// Policy is one version of the security policy. Exactly one version is active after a successful update.
type Policy struct {
	ID                   string
	MaxAddresses         int // distinct origin addresses allowed before blocking; at least 1
	BlockDurationMinutes int // at least 1
	Active               bool
	CreatedBy            string
	CreatedAt            time.Time
}

// BlockDuration returns the block duration as a time.Duration.
func (p *Policy) BlockDuration() time.Duration {
	return time.Duration(p.BlockDurationMinutes) * time.Minute
}

// Validate checks the numeric bounds.
func (p *Policy) Validate() error {
	if p.MaxAddresses < 1 {
		return errors.New("max addresses must be at least 1")
	}
	if p.BlockDurationMinutes < 1 {
		return errors.New("block duration must be at least 1 minute")
	}
	return nil
}
