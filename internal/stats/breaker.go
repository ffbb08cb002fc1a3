package stats

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"sessionguard/internal/logging"
)

// BreakerConfig configures the circuit breaker in front of statistics store calls.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32        // consecutive failures before opening; default 5
	OpenTimeout      time.Duration // time open before probing; default 30s
	HalfOpenRequests uint32        // probes allowed while half-open; default 1
}

// NewBreaker builds a circuit breaker from cfg. While open, calls fail immediately and the
// aggregator serves degraded results without waiting on the store.
func NewBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[interface{}] {
	if cfg.Name == "" {
		cfg.Name = "stats-store"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	threshold := cfg.FailureThreshold
	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("stats: circuit breaker state change")
		},
	})
}
