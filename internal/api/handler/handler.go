package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/resume-extractor/internal/domain"
)

// IdentityKey is the gin context key holding the admitted identity
const IdentityKey = "identity"

// JobService submits documents and reports job status
type JobService interface {
	Submit(ctx context.Context, data []byte) (string, error)
	GetStatus(ctx context.Context, jobID string) (*domain.Job, error)
}

// Admitter decides whether a submission may proceed
type Admitter interface {
	Admit(credential, clientIP string) (string, error)
}

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger           *slog.Logger
	Jobs             JobService
	Gate             Admitter
	Health           HealthChecker // nil when jobs are kept in memory
	CredentialHeader string
	MaxUploadBytes   int64
	ServiceName      string
}

// ResumeHandler handles resume submission and job polling
type ResumeHandler struct {
	logger         *slog.Logger
	jobs           JobService
	maxUploadBytes int64
}

// NewResumeHandler creates a new ResumeHandler instance
func NewResumeHandler(deps *Dependencies) *ResumeHandler {
	return &ResumeHandler{
		logger:         deps.Logger,
		jobs:           deps.Jobs,
		maxUploadBytes: deps.MaxUploadBytes,
	}
}
