package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"
)

// DefaultReason is the reason recorded for blocks the built-in rule imposes.
const DefaultReason = "address-count exceeded"

const abuseQuery = "data.sessionguard.abuse"

// Built-in rule: block only when the count strictly exceeds the limit.
const defaultRegoRules = `package sessionguard.abuse

default block := false

block if {
	input.address_count > input.policy.max_addresses
}

reason := "address-count exceeded" if {
	block
}
`

// OPAEvaluator evaluates the abuse rule with an OPA query prepared once at construction.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles rules, or the built-in rule when rules is empty.
// Custom rules must define package sessionguard.abuse with a boolean block and an optional string reason.
func NewOPAEvaluator(ctx context.Context, rules string) (*OPAEvaluator, error) {
	if rules == "" {
		rules = defaultRegoRules
	}
	q, err := rego.New(
		rego.Query(abuseQuery),
		rego.Module("abuse.rego", rules),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile abuse rules: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// NewOPAEvaluatorFromFile reads rules from path; an empty path selects the built-in rule.
func NewOPAEvaluatorFromFile(ctx context.Context, path string) (*OPAEvaluator, error) {
	if path == "" {
		return NewOPAEvaluator(ctx, "")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read abuse rules: %w", err)
	}
	return NewOPAEvaluator(ctx, string(b))
}

// EvaluateAbuse runs the rule against in.
func (e *OPAEvaluator) EvaluateAbuse(ctx context.Context, in Input) (Verdict, error) {
	input := map[string]interface{}{
		"user_id":       in.UserID,
		"address_count": in.AddressCount,
		"policy": map[string]interface{}{
			"max_addresses":          in.MaxAddresses,
			"block_duration_minutes": in.BlockDurationMinutes,
		},
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Verdict{}, fmt.Errorf("eval abuse rules: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Verdict{}, fmt.Errorf("abuse rules returned no result")
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Verdict{}, fmt.Errorf("abuse rules returned %T, want object", rs[0].Expressions[0].Value)
	}
	var v Verdict
	v.Block, _ = doc["block"].(bool)
	if v.Block {
		v.Reason, _ = doc["reason"].(string)
		if v.Reason == "" {
			v.Reason = DefaultReason
		}
	}
	return v, nil
}

// HealthCheck verifies the prepared rule evaluates and distinguishes a violation from a tie.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	over, err := e.EvaluateAbuse(ctx, Input{AddressCount: 2, MaxAddresses: 1, BlockDurationMinutes: 1})
	if err != nil {
		return err
	}
	tie, err := e.EvaluateAbuse(ctx, Input{AddressCount: 1, MaxAddresses: 1, BlockDurationMinutes: 1})
	if err != nil {
		return err
	}
	if !over.Block || tie.Block {
		return fmt.Errorf("abuse rules self-check failed: over=%v tie=%v", over.Block, tie.Block)
	}
	return nil
}
