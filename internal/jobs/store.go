package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/cuongbtq/resume-extractor/internal/domain"
)

// Store persists job records
type Store interface {
	// Create inserts a new pending job
	Create(ctx context.Context, job *domain.Job) error
	// Get returns a copy of the job or domain.ErrJobNotFound
	Get(ctx context.Context, jobID string) (*domain.Job, error)
	// Finalize moves a pending job to a terminal status.
	// It returns domain.ErrInvalidTransition when the job is already terminal.
	Finalize(ctx context.Context, jobID, status string, result *domain.ResumeRecord, errMsg string, at time.Time) error
	// DeleteTerminalBefore evicts terminal jobs last updated before cutoff
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// MemoryStore keeps jobs in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*domain.Job)}
}

// Create inserts a new job
func (s *MemoryStore) Create(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *job
	s.jobs[job.JobID] = &stored
	return nil
}

// Get returns a snapshot of the job
func (s *MemoryStore) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// Finalize sets the terminal status if the job is still pending
func (s *MemoryStore) Finalize(ctx context.Context, jobID, status string, result *domain.ResumeRecord, errMsg string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != domain.JobStatusPending {
		return domain.ErrInvalidTransition
	}

	job.Status = status
	job.Result = result
	job.Error = errMsg
	job.UpdatedAt = at
	return nil
}

// DeleteTerminalBefore removes completed and failed jobs older than cutoff
func (s *MemoryStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, job := range s.jobs {
		if job.IsTerminal() && job.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored jobs
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
