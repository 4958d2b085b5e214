package mockbank

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/loanbot/internal/store"
)

// StartPruneWorker runs a background goroutine that periodically deletes OTP
// issuances older than maxAge.
func StartPruneWorker(ctx context.Context, repo store.Repository, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("OTP prune worker started", "interval", interval, "max_age", maxAge)

		for {
			select {
			case <-ticker.C:
				pruneOnce(ctx, repo, maxAge)
			case <-ctx.Done():
				slog.Info("OTP prune worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func pruneOnce(ctx context.Context, repo store.Repository, maxAge time.Duration) {
	deleted, err := repo.PruneOTPIssuances(ctx, maxAge)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("OTP prune worker failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("OTP prune worker removed issuances", "count", deleted)
	}
}
