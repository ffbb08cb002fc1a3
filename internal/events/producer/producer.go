// Package producer publishes change events to Kafka for downstream consumers (e.g. the Loki worker).
package producer

import "sessionguard/internal/events"

// Producer is an events.Publisher that holds a connection to release on shutdown.
type Producer interface {
	events.Publisher
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
