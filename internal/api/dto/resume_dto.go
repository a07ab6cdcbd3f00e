package dto

import "github.com/cuongbtq/resume-extractor/internal/domain"

// SubmitResponse is returned when a resume is accepted for processing
type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResponse is the public view of a job
type JobResponse struct {
	JobID  string               `json:"job_id"`
	Status string               `json:"status"`
	Result *domain.ResumeRecord `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// ErrorResponse carries a human readable error message
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewJobResponse converts a job to its public view
func NewJobResponse(job *domain.Job) JobResponse {
	return JobResponse{
		JobID:  job.JobID,
		Status: job.Status,
		Result: job.Result,
		Error:  job.Error,
	}
}
