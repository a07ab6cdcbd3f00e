package domain

import "time"

// Job is a tracked unit of work from submission to terminal outcome
type Job struct {
	JobID     string        `json:"job_id"`
	Status    string        `json:"status"`
	Result    *ResumeRecord `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// IsTerminal reports whether the job reached completed or failed
func (j *Job) IsTerminal() bool {
	return IsTerminalStatus(j.Status)
}

// JobEvent is emitted once per job when it reaches a terminal status
type JobEvent struct {
	JobID      string    `json:"job_id"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}
