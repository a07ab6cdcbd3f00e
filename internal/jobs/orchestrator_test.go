package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/resume-extractor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	fn func(ctx context.Context, data []byte) string
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte) string {
	return f.fn(ctx, data)
}

type fakeStructurer struct {
	fn func(ctx context.Context, text string) (*domain.ResumeRecord, error)
}

func (f *fakeStructurer) Structure(ctx context.Context, text string) (*domain.ResumeRecord, error) {
	return f.fn(ctx, text)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJobEvent(ctx context.Context, event domain.JobEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func staticExtractor(text string) *fakeExtractor {
	return &fakeExtractor{fn: func(ctx context.Context, data []byte) string { return text }}
}

func summaryStructurer() *fakeStructurer {
	return &fakeStructurer{fn: func(ctx context.Context, text string) (*domain.ResumeRecord, error) {
		record := &domain.ResumeRecord{Summary: text}
		record.Normalize()
		return record, nil
	}}
}

func newTestOrchestrator(t *testing.T, cfg Config) *Orchestrator {
	t.Helper()

	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = staticExtractor("Jane Doe, Go developer")
	}
	if cfg.Structurer == nil {
		cfg.Structurer = summaryStructurer()
	}
	cfg.Logger = newTestLogger()

	o, err := NewOrchestrator(&cfg)
	require.NoError(t, err)
	return o
}

func startOrchestrator(t *testing.T, o *Orchestrator) {
	t.Helper()
	o.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.Shutdown(ctx)
	})
}

func waitForTerminal(t *testing.T, o *Orchestrator, jobID string) *domain.Job {
	t.Helper()

	var job *domain.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = o.GetStatus(context.Background(), jobID)
		return err == nil && job.IsTerminal()
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

func TestNewOrchestrator_RequiresDependencies(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		errString string
	}{
		{
			name:      "missing store",
			cfg:       Config{Extractor: staticExtractor("x"), Structurer: summaryStructurer()},
			errString: "job store is required",
		},
		{
			name:      "missing extractor",
			cfg:       Config{Store: NewMemoryStore(), Structurer: summaryStructurer()},
			errString: "extractor is required",
		},
		{
			name:      "missing structurer",
			cfg:       Config{Store: NewMemoryStore(), Extractor: staticExtractor("x")},
			errString: "structurer is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := NewOrchestrator(&tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
			assert.Nil(t, o)
		})
	}
}

func TestOrchestrator_SubmitCompletesJob(t *testing.T) {
	o := newTestOrchestrator(t, Config{})
	startOrchestrator(t, o)

	jobID, err := o.Submit(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job := waitForTerminal(t, o, jobID)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, "Jane Doe, Go developer", job.Result.Summary)
	assert.Empty(t, job.Error)
}

func TestOrchestrator_JobVisiblePendingBeforeProcessing(t *testing.T) {
	release := make(chan struct{})
	extractor := &fakeExtractor{fn: func(ctx context.Context, data []byte) string {
		<-release
		return "text"
	}}

	o := newTestOrchestrator(t, Config{Extractor: extractor, Concurrency: 1})
	startOrchestrator(t, o)

	jobID, err := o.Submit(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	job, err := o.GetStatus(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Nil(t, job.Result)

	close(release)
	job = waitForTerminal(t, o, jobID)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
}

func TestOrchestrator_SubmitsGetDistinctIDs(t *testing.T) {
	o := newTestOrchestrator(t, Config{})
	startOrchestrator(t, o)

	first, err := o.Submit(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	second, err := o.Submit(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, domain.JobStatusCompleted, waitForTerminal(t, o, first).Status)
	assert.Equal(t, domain.JobStatusCompleted, waitForTerminal(t, o, second).Status)
}

func TestOrchestrator_FailedJobs(t *testing.T) {
	tests := []struct {
		name       string
		extractor  *fakeExtractor
		structurer *fakeStructurer
		errString  string
	}{
		{
			name:      "no text extracted",
			extractor: staticExtractor(""),
			errString: "no text could be extracted",
		},
		{
			name:      "structuring fails",
			extractor: staticExtractor("text"),
			structurer: &fakeStructurer{fn: func(ctx context.Context, text string) (*domain.ResumeRecord, error) {
				return nil, fmt.Errorf("%w: model output is not valid JSON", domain.ErrStructuringFailed)
			}},
			errString: "model output is not valid JSON",
		},
		{
			name: "extractor panics",
			extractor: &fakeExtractor{fn: func(ctx context.Context, data []byte) string {
				panic("corrupt document")
			}},
			errString: "internal error: corrupt document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Extractor: tt.extractor}
			if tt.structurer != nil {
				cfg.Structurer = tt.structurer
			}
			o := newTestOrchestrator(t, cfg)
			startOrchestrator(t, o)

			jobID, err := o.Submit(context.Background(), []byte("%PDF"))
			require.NoError(t, err)

			job := waitForTerminal(t, o, jobID)
			assert.Equal(t, domain.JobStatusFailed, job.Status)
			assert.Nil(t, job.Result)
			assert.Contains(t, job.Error, tt.errString)
		})
	}
}

func TestOrchestrator_StructurerNotCalledWithoutText(t *testing.T) {
	called := false
	structurer := &fakeStructurer{fn: func(ctx context.Context, text string) (*domain.ResumeRecord, error) {
		called = true
		return &domain.ResumeRecord{}, nil
	}}

	o := newTestOrchestrator(t, Config{Extractor: staticExtractor(""), Structurer: structurer})
	startOrchestrator(t, o)

	jobID, err := o.Submit(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	waitForTerminal(t, o, jobID)
	assert.False(t, called)
}

func TestOrchestrator_JobTimeout(t *testing.T) {
	structurer := &fakeStructurer{fn: func(ctx context.Context, text string) (*domain.ResumeRecord, error) {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", domain.ErrStructuringFailed, ctx.Err())
	}}

	o := newTestOrchestrator(t, Config{Structurer: structurer, JobTimeout: 20 * time.Millisecond})
	startOrchestrator(t, o)

	jobID, err := o.Submit(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	job := waitForTerminal(t, o, jobID)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "deadline exceeded")
}

func TestOrchestrator_QueueFull(t *testing.T) {
	o := newTestOrchestrator(t, Config{QueueSize: 1})

	// Not started: the single queue slot is never drained
	first, err := o.Submit(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	jobID, err := o.Submit(context.Background(), []byte("%PDF"))
	assert.ErrorIs(t, err, domain.ErrQueueFull)
	assert.Empty(t, jobID)

	job, err := o.GetStatus(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, job.Status)

	require.NoError(t, o.Shutdown(context.Background()))

	job, err = o.GetStatus(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Equal(t, domain.ErrShuttingDown.Error(), job.Error)
}

func TestOrchestrator_GetStatusUnknownJob(t *testing.T) {
	o := newTestOrchestrator(t, Config{})

	job, err := o.GetStatus(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.Nil(t, job)
}

func TestOrchestrator_SubmitAfterShutdown(t *testing.T) {
	o := newTestOrchestrator(t, Config{})
	o.Start(context.Background())
	require.NoError(t, o.Shutdown(context.Background()))

	jobID, err := o.Submit(context.Background(), []byte("%PDF"))
	assert.ErrorIs(t, err, domain.ErrShuttingDown)
	assert.Empty(t, jobID)

	// Repeated shutdown is a no-op
	assert.NoError(t, o.Shutdown(context.Background()))
}

func TestOrchestrator_ShutdownDrainsQueue(t *testing.T) {
	o := newTestOrchestrator(t, Config{Concurrency: 1})
	o.Start(context.Background())

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := o.Submit(context.Background(), []byte("%PDF"))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Shutdown(ctx))

	for _, id := range ids {
		job, err := o.GetStatus(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCompleted, job.Status)
	}
}

func TestOrchestrator_ShutdownDeadlineCancelsJobs(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	structurer := &fakeStructurer{fn: func(ctx context.Context, text string) (*domain.ResumeRecord, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	o := newTestOrchestrator(t, Config{Structurer: structurer, Concurrency: 1, JobTimeout: time.Minute})
	o.Start(context.Background())

	inflight, err := o.Submit(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	queued, err := o.Submit(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = o.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	for _, id := range []string{inflight, queued} {
		job, err := o.GetStatus(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusFailed, job.Status)
	}
}

func TestOrchestrator_PublishesTerminalEvents(t *testing.T) {
	events := make(chan domain.JobEvent, 1)
	publisher := &mockPublisher{}
	publisher.On("PublishJobEvent", mock.Anything, mock.MatchedBy(func(e domain.JobEvent) bool {
		return e.Status == domain.JobStatusCompleted && e.Error == ""
	})).Run(func(args mock.Arguments) {
		events <- args.Get(1).(domain.JobEvent)
	}).Return(nil).Once()

	o := newTestOrchestrator(t, Config{Publisher: publisher})
	startOrchestrator(t, o)

	jobID, err := o.Submit(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	select {
	case event := <-events:
		assert.Equal(t, jobID, event.JobID)
		assert.False(t, event.FinishedAt.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("job event was not published")
	}

	publisher.AssertExpectations(t)
}

func TestOrchestrator_PublishFailureKeepsOutcome(t *testing.T) {
	publisher := &mockPublisher{}
	publisher.On("PublishJobEvent", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	o := newTestOrchestrator(t, Config{Publisher: publisher, Extractor: staticExtractor("")})
	startOrchestrator(t, o)

	jobID, err := o.Submit(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	job := waitForTerminal(t, o, jobID)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "no text could be extracted")
}

func TestOrchestrator_Sweep(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newPendingJob("stale-pending", now.Add(-48*time.Hour))))
	require.NoError(t, store.Create(ctx, newPendingJob("stale-done", now.Add(-48*time.Hour))))
	require.NoError(t, store.Create(ctx, newPendingJob("recent-done", now.Add(-time.Hour))))
	require.NoError(t, store.Finalize(ctx, "stale-done", domain.JobStatusCompleted, &domain.ResumeRecord{}, "", now.Add(-48*time.Hour)))
	require.NoError(t, store.Finalize(ctx, "recent-done", domain.JobStatusCompleted, &domain.ResumeRecord{}, "", now.Add(-time.Hour)))

	o := newTestOrchestrator(t, Config{Store: store, TTL: 24 * time.Hour, Now: clock})

	assert.Equal(t, 1, o.Sweep(ctx))

	_, err := o.GetStatus(ctx, "stale-done")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	_, err = o.GetStatus(ctx, "stale-pending")
	assert.NoError(t, err)
	_, err = o.GetStatus(ctx, "recent-done")
	assert.NoError(t, err)
}

func TestOrchestrator_SweepLoopRuns(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	old := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Create(ctx, newPendingJob("expired", old)))
	require.NoError(t, store.Finalize(ctx, "expired", domain.JobStatusFailed, nil, "boom", old))

	o := newTestOrchestrator(t, Config{Store: store, TTL: time.Minute, SweepInterval: 10 * time.Millisecond})
	startOrchestrator(t, o)

	require.Eventually(t, func() bool {
		return store.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
