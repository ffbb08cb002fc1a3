package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"sessionguard/internal/events"
)

// NewChangePublisher returns a publisher that records change events as OTel log records.
// A nil provider yields a publisher that does nothing.
func NewChangePublisher(provider *sdklog.LoggerProvider) events.Publisher {
	if provider == nil {
		return noopPublisher{}
	}
	return &logPublisher{logger: provider.Logger("sessionguard.changes")}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, events.ChangeEvent) error { return nil }

type logPublisher struct {
	logger otellog.Logger
}

func (p *logPublisher) Publish(ctx context.Context, ev events.ChangeEvent) error {
	var rec otellog.Record
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetBody(otellog.StringValue(string(ev.Kind) + " " + string(ev.Op)))
	rec.AddAttributes(
		otellog.String("kind", string(ev.Kind)),
		otellog.String("op", string(ev.Op)),
		otellog.String("id", ev.ID),
	)
	if ev.UserID != "" {
		rec.AddAttributes(otellog.String("user_id", ev.UserID))
	}
	p.logger.Emit(ctx, rec)
	return nil
}
