package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job id is unknown
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTransition is returned when finalizing a job that is no longer pending
	ErrInvalidTransition = errors.New("job is not in pending status")

	// ErrQueueFull is returned when the worker queue cannot accept another job
	ErrQueueFull = errors.New("job queue is full")

	// ErrShuttingDown is returned when a job is submitted after shutdown began
	ErrShuttingDown = errors.New("service is shutting down")

	// ErrTooBusy is returned when a guest request arrives inside the global cooldown
	ErrTooBusy = errors.New("server is busy")

	// ErrQuotaExceeded is returned when a guest identity used up its daily quota
	ErrQuotaExceeded = errors.New("daily quota exceeded")

	// ErrNoText is returned when no extraction strategy produced text
	ErrNoText = errors.New("no text could be extracted from the PDF")

	// ErrStructuringFailed is returned when the model output cannot be turned into a resume
	ErrStructuringFailed = errors.New("structuring failed")
)

// QuotaError carries the daily limit that was hit
type QuotaError struct {
	Limit int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("daily limit of %d resumes reached", e.Limit)
}

func (e *QuotaError) Unwrap() error {
	return ErrQuotaExceeded
}

// NewQuotaError creates a new quota error for the given limit
func NewQuotaError(limit int) error {
	return &QuotaError{Limit: limit}
}
