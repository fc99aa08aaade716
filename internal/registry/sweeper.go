package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/user/klaxon/internal/protocol"
)

// Sweeper periodically expires overdue confirmations and pushes the
// synthesized acknowledgements onto the outbound queue. It runs for the
// process lifetime, not per connection, so windows keep counting down
// across reconnects.
type Sweeper struct {
	registry *Registry
	out      chan<- protocol.Confirmation
	interval time.Duration
}

// NewSweeper creates a Sweeper polling the registry every interval.
func NewSweeper(reg *Registry, out chan<- protocol.Confirmation, interval time.Duration) *Sweeper {
	return &Sweeper{registry: reg, out: out, interval: interval}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, c := range s.registry.SweepExpired(now) {
				slog.Info("confirmation window expired, auto-confirming",
					"alert_id", c.AlertID, "username", c.Username)
				select {
				case s.out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
