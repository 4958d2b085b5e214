package sessions

import (
	"context"
	"log/slog"
	"time"
)

// StartSweeper runs a background goroutine that periodically evicts idle
// conversations until ctx is done.
func (st *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "ttl", st.ttl)

		for {
			select {
			case <-ticker.C:
				if n := st.Sweep(); n > 0 {
					slog.Info("Session sweeper evicted idle conversations", "count", n, "remaining", st.Len())
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
