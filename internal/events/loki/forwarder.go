package loki

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"sessionguard/internal/logging"
)

const pushTimeout = 10 * time.Second

// MessageReader is the part of *kafka.Reader the forwarder uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Forwarder copies change events from a Kafka topic into Loki. An offset is committed only
// after its message was pushed, so a Loki outage redelivers instead of dropping.
type Forwarder struct {
	reader MessageReader
	client *Client
	retry  time.Duration
}

// NewForwarder returns a forwarder from reader to client.
func NewForwarder(reader MessageReader, client *Client) *Forwarder {
	return &Forwarder{reader: reader, client: client, retry: time.Second}
}

// Serve forwards until ctx is cancelled. It is a supervised service.
func (f *Forwarder) Serve(ctx context.Context) error {
	for {
		msg, err := f.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Warn().Err(err).Msg("loki: kafka fetch failed")
			if !f.wait(ctx) {
				return ctx.Err()
			}
			continue
		}
		for {
			pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
			err = f.client.PushChangeJSON(pushCtx, msg.Value)
			cancel()
			if err == nil {
				break
			}
			logging.Warn().Err(err).Int64("offset", msg.Offset).Msg("loki: push failed, retrying")
			if !f.wait(ctx) {
				return ctx.Err()
			}
		}
		if err := f.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			logging.Warn().Err(err).Int64("offset", msg.Offset).Msg("loki: kafka commit failed")
		}
	}
}

// String names the service in supervisor logs.
func (f *Forwarder) String() string { return "loki-forwarder" }

func (f *Forwarder) wait(ctx context.Context) bool {
	t := time.NewTimer(f.retry)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
