package tracker

import (
	"context"
	"time"

	"sessionguard/internal/logging"
)

// Sweeper runs SweepStale on a fixed interval. It is a supervised service.
type Sweeper struct {
	tracker  *Tracker
	interval time.Duration
}

// NewSweeper returns a Sweeper for t. interval must be positive.
func NewSweeper(t *Tracker, interval time.Duration) *Sweeper {
	return &Sweeper{tracker: t, interval: interval}
}

// Serve sweeps until ctx is cancelled.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.tracker.SweepStale(ctx)
			if err != nil {
				logging.Warn().Err(err).Int("closed", n).Msg("tracker: stale sweep failed")
				continue
			}
			if n > 0 {
				logging.Info().Int("closed", n).Msg("tracker: closed stale sessions")
			}
		}
	}
}

// String names the service in supervisor logs.
func (s *Sweeper) String() string { return "stale-session-sweeper" }
