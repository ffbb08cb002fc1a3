package engine

import "context"

// Input is what the abuse rule sees for one user.
type Input struct {
	UserID               string
	AddressCount         int
	MaxAddresses         int
	BlockDurationMinutes int
}

// Verdict is the rule's outcome.
type Verdict struct {
	Block  bool
	Reason string
}

// Evaluator decides whether a user's address count warrants a block.
type Evaluator interface {
	EvaluateAbuse(ctx context.Context, in Input) (Verdict, error)
}
