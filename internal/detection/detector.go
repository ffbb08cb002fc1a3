// Package detection implements the abuse detector: distinct origin addresses per user checked
// against the active policy, with a system block imposed on violation.
package detection

import (
	"context"
	"fmt"
	"time"

	"sessionguard/internal/block"
	blockdomain "sessionguard/internal/block/domain"
	"sessionguard/internal/logging"
	"sessionguard/internal/policy/domain"
	"sessionguard/internal/policy/engine"
	"sessionguard/internal/telemetry"
)

// Action is the detector's decision.
type Action string

const (
	ActionNone  Action = "none"
	ActionBlock Action = "block"
)

// Decision is the outcome of one evaluation.
type Decision struct {
	Action       Action
	Reason       string
	AddressCount int
	BlockID      string
	BlockedUntil time.Time
}

// PolicySource returns the active policy, or nil when none is active.
type PolicySource interface {
	Active(ctx context.Context) (*domain.Policy, error)
}

// AddressCounter counts a user's distinct origin addresses.
type AddressCounter interface {
	CountDistinctAddresses(ctx context.Context, userID string) (int, error)
}

// Blocks is the part of the block registry the detector uses.
type Blocks interface {
	IsActive(ctx context.Context, userID string) (bool, error)
	Create(ctx context.Context, spec block.Spec) (*blockdomain.Block, error)
	Now() time.Time
}

// Detector evaluates users. Its collaborators are explicit so tests can inject policies.
type Detector struct {
	policies  PolicySource
	addresses AddressCounter
	blocks    Blocks
	rules     engine.Evaluator
	metrics   *telemetry.Metrics
}

// New returns a Detector.
func New(policies PolicySource, addresses AddressCounter, blocks Blocks, rules engine.Evaluator, metrics *telemetry.Metrics) *Detector {
	return &Detector{policies: policies, addresses: addresses, blocks: blocks, rules: rules, metrics: metrics}
}

// Evaluate checks the user and imposes a system block when the distinct-address count strictly exceeds
// the policy limit. With no active policy the detector fails open. A user already blocked yields none.
// Two concurrent evaluations may both create a block; readers treat any effective block as blocked.
func (d *Detector) Evaluate(ctx context.Context, userID string) (Decision, error) {
	none := Decision{Action: ActionNone}
	p, err := d.policies.Active(ctx)
	if err != nil {
		d.metrics.Evaluation(ctx, "error")
		return none, fmt.Errorf("detection: load policy: %w", err)
	}
	if p == nil {
		d.metrics.Evaluation(ctx, "disabled")
		logging.Ctx(ctx).Warn().Str("user_id", userID).Msg("detection: no active security policy, failing open")
		return none, nil
	}

	blocked, err := d.blocks.IsActive(ctx, userID)
	if err != nil {
		d.metrics.Evaluation(ctx, "error")
		return none, fmt.Errorf("detection: check block: %w", err)
	}
	if blocked {
		d.metrics.Evaluation(ctx, "skipped")
		return none, nil
	}

	count, err := d.addresses.CountDistinctAddresses(ctx, userID)
	if err != nil {
		d.metrics.Evaluation(ctx, "error")
		return none, fmt.Errorf("detection: count addresses: %w", err)
	}
	none.AddressCount = count

	verdict, err := d.rules.EvaluateAbuse(ctx, engine.Input{
		UserID:               userID,
		AddressCount:         count,
		MaxAddresses:         p.MaxAddresses,
		BlockDurationMinutes: p.BlockDurationMinutes,
	})
	if err != nil {
		d.metrics.Evaluation(ctx, "error")
		return none, fmt.Errorf("detection: %w", err)
	}
	if !verdict.Block {
		d.metrics.Evaluation(ctx, "none")
		return none, nil
	}

	until := d.blocks.Now().UTC().Add(p.BlockDuration())
	b, err := d.blocks.Create(ctx, block.Spec{
		UserID:        userID,
		Reason:        verdict.Reason,
		BlockedUntil:  until,
		AddressCount:  count,
		SystemImposed: true,
	})
	if err != nil {
		d.metrics.Evaluation(ctx, "error")
		return none, fmt.Errorf("detection: create block: %w", err)
	}
	d.metrics.Evaluation(ctx, "block")
	logging.Ctx(ctx).Warn().Str("user_id", userID).Int("addresses", count).Int("max_addresses", p.MaxAddresses).
		Str("block_id", b.ID).Msg("detection: address limit exceeded, user blocked")
	return Decision{
		Action:       ActionBlock,
		Reason:       verdict.Reason,
		AddressCount: count,
		BlockID:      b.ID,
		BlockedUntil: b.BlockedUntil,
	}, nil
}

// OnOpen evaluates after a session opens. Errors are logged and the session stands.
func (d *Detector) OnOpen(ctx context.Context, userID string) {
	if _, err := d.Evaluate(ctx, userID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("detection: evaluation on open failed")
	}
}
