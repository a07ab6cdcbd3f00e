package domain

// Job status constants
const (
	JobStatusPending   = "pending"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// GuestIdentity is the identity assigned to admitted requests without a credential
const GuestIdentity = "guest"

// IsTerminalStatus reports whether a job in this status can no longer change
func IsTerminalStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}
