package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/resume-extractor/internal/domain"
	"github.com/google/uuid"
)

const (
	defaultConcurrency   = 4
	defaultQueueSize     = 100
	defaultJobTimeout    = 5 * time.Minute
	defaultTTL           = 24 * time.Hour
	defaultSweepInterval = 10 * time.Minute
	finalizeTimeout      = 10 * time.Second
)

// Extractor turns raw PDF bytes into plain text, empty when nothing was found
type Extractor interface {
	Extract(ctx context.Context, data []byte) string
}

// Structurer turns plain resume text into a structured record
type Structurer interface {
	Structure(ctx context.Context, text string) (*domain.ResumeRecord, error)
}

// EventPublisher receives one event per job reaching a terminal status
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, event domain.JobEvent) error
}

// Config holds orchestrator dependencies and pool settings
type Config struct {
	Store         Store
	Extractor     Extractor
	Structurer    Structurer
	Publisher     EventPublisher
	Logger        *slog.Logger
	Concurrency   int
	QueueSize     int
	JobTimeout    time.Duration
	TTL           time.Duration
	SweepInterval time.Duration
	Now           func() time.Time
}

// task is a queued unit of work; the document bytes never reach the store
type task struct {
	jobID string
	data  []byte
}

// Orchestrator accepts documents, runs them through extraction and structuring
// on a bounded worker pool, and records each job's outcome
type Orchestrator struct {
	store      Store
	extractor  Extractor
	structurer Structurer
	publisher  EventPublisher
	logger     *slog.Logger
	now        func() time.Time

	concurrency   int
	jobTimeout    time.Duration
	ttl           time.Duration
	sweepInterval time.Duration

	jobsChan chan *task
	stopChan chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	sweepWG  sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(cfg *Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, errors.New("job store is required")
	}
	if cfg.Extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if cfg.Structurer == nil {
		return nil, errors.New("structurer is required")
	}

	o := &Orchestrator{
		store:         cfg.Store,
		extractor:     cfg.Extractor,
		structurer:    cfg.Structurer,
		publisher:     cfg.Publisher,
		logger:        cfg.Logger,
		now:           cfg.Now,
		concurrency:   cfg.Concurrency,
		jobTimeout:    cfg.JobTimeout,
		ttl:           cfg.TTL,
		sweepInterval: cfg.SweepInterval,
		stopChan:      make(chan struct{}),
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.concurrency <= 0 {
		o.concurrency = defaultConcurrency
	}
	if o.jobTimeout <= 0 {
		o.jobTimeout = defaultJobTimeout
	}
	if o.ttl <= 0 {
		o.ttl = defaultTTL
	}
	if o.sweepInterval <= 0 {
		o.sweepInterval = defaultSweepInterval
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	o.jobsChan = make(chan *task, queueSize)

	return o, nil
}

// Start spawns the worker pool and the retention sweeper
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started || o.closed {
		return
	}
	o.started = true

	ctx, o.cancel = context.WithCancel(ctx)
	o.spawnWorkerPool(ctx)

	o.sweepWG.Add(1)
	go o.sweepLoop(ctx)
}

// Submit registers a pending job and queues the document for processing.
// The job is readable through GetStatus before Submit returns.
func (o *Orchestrator) Submit(ctx context.Context, data []byte) (string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		return "", domain.ErrShuttingDown
	}

	now := o.now().UTC()
	job := &domain.Job{
		JobID:     uuid.NewString(),
		Status:    domain.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := o.store.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	select {
	case o.jobsChan <- &task{jobID: job.JobID, data: data}:
	default:
		o.logger.Warn("Job queue is full, rejecting job",
			slog.String("job_id", job.JobID),
			slog.Int("queue_size", cap(o.jobsChan)),
		)
		o.finalize(job.JobID, domain.JobStatusFailed, nil, domain.ErrQueueFull.Error())
		return "", domain.ErrQueueFull
	}

	o.logger.Info("Job submitted",
		slog.String("job_id", job.JobID),
		slog.Int("size_bytes", len(data)),
	)

	return job.JobID, nil
}

// GetStatus returns a snapshot of the job
func (o *Orchestrator) GetStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	return o.store.Get(ctx, jobID)
}

// Shutdown stops accepting jobs and waits for queued work to finish.
// When ctx expires first, in-flight jobs are canceled and leftover queued jobs fail.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	started := o.started
	close(o.stopChan)
	close(o.jobsChan)
	o.mu.Unlock()

	if !started {
		o.failQueued()
		return nil
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		o.logger.Info("All workers finished")
	case <-ctx.Done():
		o.logger.Warn("Shutdown deadline reached, canceling in-flight jobs")
		err = ctx.Err()
	}

	o.cancel()
	o.wg.Wait()
	o.sweepWG.Wait()
	o.failQueued()

	return err
}

// failQueued fails jobs that were queued but never picked up
func (o *Orchestrator) failQueued() {
	for t := range o.jobsChan {
		o.finalize(t.jobID, domain.JobStatusFailed, nil, domain.ErrShuttingDown.Error())
	}
}

// processJob runs one job to a terminal status
func (o *Orchestrator) processJob(ctx context.Context, t *task) {
	startTime := o.now()

	jobCtx, cancel := context.WithTimeout(ctx, o.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Job processing panicked",
				slog.String("job_id", t.jobID),
				slog.Any("panic", r),
			)
			o.finalize(t.jobID, domain.JobStatusFailed, nil, fmt.Sprintf("internal error: %v", r))
		}
	}()

	record, err := o.execute(jobCtx, t.data)
	if err != nil {
		o.logger.Error("Error processing job",
			slog.String("job_id", t.jobID),
			slog.String("error", err.Error()),
			slog.Duration("duration", o.now().Sub(startTime)),
		)
		o.finalize(t.jobID, domain.JobStatusFailed, nil, err.Error())
		return
	}

	o.finalize(t.jobID, domain.JobStatusCompleted, record, "")
	o.logger.Info("Job completed",
		slog.String("job_id", t.jobID),
		slog.Int("skills", len(record.Skills)),
		slog.Duration("duration", o.now().Sub(startTime)),
	)
}

// execute runs extraction then structuring
func (o *Orchestrator) execute(ctx context.Context, data []byte) (*domain.ResumeRecord, error) {
	text := o.extractor.Extract(ctx, data)
	if text == "" {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("job canceled during extraction: %w", err)
		}
		return nil, domain.ErrNoText
	}

	record, err := o.structurer.Structure(ctx, text)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// finalize records the terminal outcome and publishes the job event
func (o *Orchestrator) finalize(jobID, status string, record *domain.ResumeRecord, errMsg string) {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	finishedAt := o.now().UTC()
	if err := o.store.Finalize(ctx, jobID, status, record, errMsg, finishedAt); err != nil {
		o.logger.Error("Failed to finalize job",
			slog.String("job_id", jobID),
			slog.String("status", status),
			slog.String("error", err.Error()),
		)
		return
	}

	if o.publisher == nil {
		return
	}

	event := domain.JobEvent{
		JobID:      jobID,
		Status:     status,
		Error:      errMsg,
		FinishedAt: finishedAt,
	}
	if err := o.publisher.PublishJobEvent(ctx, event); err != nil {
		o.logger.Warn("Failed to publish job event",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}
