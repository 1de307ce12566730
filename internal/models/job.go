package models

import "fmt"

// JobStatus represents the state of a search job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// statusRank orders statuses along the monotonic lifecycle
// pending -> running -> {completed, failed}.
var statusRank = map[JobStatus]int{
	JobStatusPending:   0,
	JobStatusRunning:   1,
	JobStatusCompleted: 2,
	JobStatusFailed:    2,
}

// ParseJobStatus validates a wire status value
func ParseJobStatus(s string) (JobStatus, error) {
	status := JobStatus(s)
	if _, ok := statusRank[status]; !ok {
		return "", fmt.Errorf("unknown job status: %q", s)
	}
	return status, nil
}

// IsTerminal reports whether the status is final
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether moving from s to next respects the
// monotonic lifecycle. Re-delivering the current status is allowed (it is
// not a regression); leaving a terminal state never is.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	return statusRank[next] > statusRank[s]
}

// JobHandle identifies the one live search job. Exactly one handle exists
// at a time; starting a new search replaces it wholesale.
type JobHandle struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
}
