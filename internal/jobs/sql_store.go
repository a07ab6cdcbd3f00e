package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/resume-extractor/internal/domain"
	"github.com/jmoiron/sqlx"
)

const createJobsTable = `
	CREATE TABLE IF NOT EXISTS resume_jobs (
		job_id     VARCHAR(64) PRIMARY KEY,
		status     VARCHAR(16) NOT NULL,
		result     TEXT,
		error      TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)
`

// jobRow mirrors the resume_jobs table; timestamps are unix nanoseconds
type jobRow struct {
	JobID     string         `db:"job_id"`
	Status    string         `db:"status"`
	Result    sql.NullString `db:"result"`
	Error     string         `db:"error"`
	CreatedAt int64          `db:"created_at"`
	UpdatedAt int64          `db:"updated_at"`
}

func (r *jobRow) toDomain() (*domain.Job, error) {
	job := &domain.Job{
		JobID:     r.JobID,
		Status:    r.Status,
		Error:     r.Error,
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, r.UpdatedAt).UTC(),
	}

	if r.Result.Valid && r.Result.String != "" {
		var record domain.ResumeRecord
		if err := json.Unmarshal([]byte(r.Result.String), &record); err != nil {
			return nil, fmt.Errorf("failed to decode job result: %w", err)
		}
		record.Normalize()
		job.Result = &record
	}

	return job, nil
}

// SQLStore keeps jobs in a SQL database through sqlx
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore creates the store and ensures the jobs table exists
func NewSQLStore(ctx context.Context, db *sqlx.DB) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, createJobsTable); err != nil {
		return nil, fmt.Errorf("failed to create jobs table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Create inserts a new job
func (s *SQLStore) Create(ctx context.Context, job *domain.Job) error {
	query := s.db.Rebind(`
		INSERT INTO resume_jobs (job_id, status, result, error, created_at, updated_at)
		VALUES (?, ?, NULL, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		job.JobID,
		job.Status,
		job.Error,
		job.CreatedAt.UnixNano(),
		job.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// Get loads a job by id
func (s *SQLStore) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	query := s.db.Rebind(`
		SELECT job_id, status, result, error, created_at, updated_at
		FROM resume_jobs
		WHERE job_id = ?
	`)

	var row jobRow
	if err := s.db.GetContext(ctx, &row, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return row.toDomain()
}

// Finalize sets the terminal status with a conditional update on pending
func (s *SQLStore) Finalize(ctx context.Context, jobID, status string, result *domain.ResumeRecord, errMsg string, at time.Time) error {
	var encoded sql.NullString
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode job result: %w", err)
		}
		encoded = sql.NullString{String: string(b), Valid: true}
	}

	query := s.db.Rebind(`
		UPDATE resume_jobs
		SET status = ?, result = ?, error = ?, updated_at = ?
		WHERE job_id = ? AND status = ?
	`)

	res, err := s.db.ExecContext(ctx, query, status, encoded, errMsg, at.UnixNano(), jobID, domain.JobStatusPending)
	if err != nil {
		return fmt.Errorf("failed to finalize job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finalized rows: %w", err)
	}
	if affected == 1 {
		return nil
	}

	if _, err := s.Get(ctx, jobID); err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

// DeleteTerminalBefore removes completed and failed jobs older than cutoff
func (s *SQLStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := s.db.Rebind(`
		DELETE FROM resume_jobs
		WHERE status IN (?, ?) AND updated_at < ?
	`)

	res, err := s.db.ExecContext(ctx, query, domain.JobStatusCompleted, domain.JobStatusFailed, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired jobs: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted jobs: %w", err)
	}
	return int(affected), nil
}
