package jobs

import (
	"context"
	"fmt"
	"log/slog"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (o *Orchestrator) spawnWorkerPool(ctx context.Context) {
	o.logger.Info("Spawning worker pool",
		slog.Int("concurrency", o.concurrency),
		slog.Int("queue_size", cap(o.jobsChan)),
	)

	for i := 0; i < o.concurrency; i++ {
		o.wg.Add(1)
		go o.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine.
// It drains the queue until jobsChan is closed or ctx is canceled.
func (o *Orchestrator) workerLoop(ctx context.Context, workerNum int) {
	defer o.wg.Done()

	workerName := fmt.Sprintf("worker-%d", workerNum)
	o.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-ctx.Done():
			o.logger.Debug("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case t, ok := <-o.jobsChan:
			if !ok {
				o.logger.Debug("Worker goroutine stopping - jobsChan closed",
					slog.String("worker_name", workerName),
				)
				return
			}

			o.logger.Info("Worker received job",
				slog.String("worker_name", workerName),
				slog.String("job_id", t.jobID),
			)

			o.processJob(ctx, t)
		}
	}
}
