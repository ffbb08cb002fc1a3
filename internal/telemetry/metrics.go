// Package telemetry holds the engine's metric instruments.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "sessionguard"

// Metrics records engine counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	sessionsOpened metric.Int64Counter
	sessionsClosed metric.Int64Counter
	sessionsSwept  metric.Int64Counter
	evaluations    metric.Int64Counter
	blocksCreated  metric.Int64Counter
	blocksLifted   metric.Int64Counter
	policyUpdates  metric.Int64Counter
	statsDegraded  metric.Int64Counter
	rpcDuration    metric.Float64Histogram
}

// NewMetrics creates the instruments on provider's meter.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	m := provider.Meter(meterName)
	var (
		out Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&out.sessionsOpened, "sessionguard.sessions.opened", "Sessions opened."},
		{&out.sessionsClosed, "sessionguard.sessions.closed", "Sessions closed by the client."},
		{&out.sessionsSwept, "sessionguard.sessions.swept", "Stale sessions closed by the sweeper."},
		{&out.evaluations, "sessionguard.detector.evaluations", "Abuse evaluations by outcome."},
		{&out.blocksCreated, "sessionguard.blocks.created", "Blocks created."},
		{&out.blocksLifted, "sessionguard.blocks.lifted", "Blocks lifted by an operator."},
		{&out.policyUpdates, "sessionguard.policy.updates", "Security policy replacements."},
		{&out.statsDegraded, "sessionguard.stats.degraded", "Statistics served degraded after a store failure."},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}
	out.rpcDuration, err = m.Float64Histogram("sessionguard.rpc.duration",
		metric.WithDescription("RPC handling time."), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SessionOpened counts an opened session.
func (m *Metrics) SessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionsOpened.Add(ctx, 1)
}

// SessionClosed counts a session closed by the client.
func (m *Metrics) SessionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionsClosed.Add(ctx, 1)
}

// SessionsSwept counts n sessions closed as stale.
func (m *Metrics) SessionsSwept(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsSwept.Add(ctx, int64(n))
}

// Evaluation counts one detector run with its outcome (none, block, skipped, disabled, error).
func (m *Metrics) Evaluation(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.evaluations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// BlockCreated counts a new block.
func (m *Metrics) BlockCreated(ctx context.Context, systemImposed bool) {
	if m == nil {
		return
	}
	m.blocksCreated.Add(ctx, 1, metric.WithAttributes(attribute.Bool("system_imposed", systemImposed)))
}

// BlockLifted counts a manual unblock.
func (m *Metrics) BlockLifted(ctx context.Context) {
	if m == nil {
		return
	}
	m.blocksLifted.Add(ctx, 1)
}

// PolicyUpdated counts a policy replacement.
func (m *Metrics) PolicyUpdated(ctx context.Context) {
	if m == nil {
		return
	}
	m.policyUpdates.Add(ctx, 1)
}

// StatsDegraded counts a statistics call that fell back to zero values.
func (m *Metrics) StatsDegraded(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.statsDegraded.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// RPC records one RPC's duration with its method and status code.
func (m *Metrics) RPC(ctx context.Context, method, code string, ms float64) {
	if m == nil {
		return
	}
	m.rpcDuration.Record(ctx, ms, metric.WithAttributes(
		attribute.String("rpc.method", method),
		attribute.String("rpc.grpc.status_code", code),
	))
}
