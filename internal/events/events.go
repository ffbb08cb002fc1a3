// Package events carries create/update notifications for sessions, blocks and policies
// so dashboards can refresh without polling.
package events

import (
	"context"
	"errors"
	"time"

	"sessionguard/internal/logging"
)

// Kind is the record type a change refers to.
type Kind string

const (
	KindSession Kind = "session"
	KindBlock   Kind = "block"
	KindPolicy  Kind = "policy"
)

// Op is the change applied to the record.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
)

// ChangeEvent describes one record change. It carries identifiers only; readers re-fetch state.
type ChangeEvent struct {
	Kind   Kind      `json:"kind"`
	Op     Op        `json:"op"`
	ID     string    `json:"id"`
	UserID string    `json:"userId,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher delivers change events. Delivery is best-effort; callers log and ignore errors.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// Emit publishes ev on p and logs a failure. p may be nil.
func Emit(ctx context.Context, p Publisher, ev ChangeEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("kind", string(ev.Kind)).Str("id", ev.ID).Msg("events: publish failed")
	}
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

// Publish sends ev to every non-nil publisher.
func (m Multi) Publish(ctx context.Context, ev ChangeEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// publishTimeout bounds a single asynchronous publish.
const publishTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the server stops before shutting down sinks,
// so in-flight asynchronous publishes can complete.
const ShutdownDrainDuration = publishTimeout

type asyncPublisher struct {
	next Publisher
}

// Async wraps p so Publish returns immediately and delivery happens on a goroutine.
// The goroutine uses a fresh context with a short timeout so request cancellation does not abort it.
// Returns nil when p is nil.
func Async(p Publisher) Publisher {
	if p == nil {
		return nil
	}
	return asyncPublisher{next: p}
}

func (a asyncPublisher) Publish(_ context.Context, ev ChangeEvent) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := a.next.Publish(ctx, ev); err != nil {
			logging.Warn().Err(err).Str("kind", string(ev.Kind)).Str("id", ev.ID).Msg("events: async publish failed")
		}
	}()
	return nil
}
