package jobs

import (
	"context"
	"log/slog"
	"time"
)

// sweepLoop evicts expired terminal jobs every sweep interval
func (o *Orchestrator) sweepLoop(ctx context.Context) {
	defer o.sweepWG.Done()

	ticker := time.NewTicker(o.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Sweep(ctx)
		}
	}
}

// Sweep deletes terminal jobs whose last update is older than the TTL.
// Pending jobs are never evicted.
func (o *Orchestrator) Sweep(ctx context.Context) int {
	cutoff := o.now().UTC().Add(-o.ttl)

	deleted, err := o.store.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		o.logger.Error("Failed to evict expired jobs",
			slog.String("error", err.Error()),
		)
		return 0
	}

	if deleted > 0 {
		o.logger.Info("Evicted expired jobs",
			slog.Int("count", deleted),
			slog.Time("cutoff", cutoff),
		)
	}

	return deleted
}
