package submit

import "fmt"

// ValidationError marks a request rejected before any network I/O. The
// session stays in whatever state it was in.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid search request: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid search request: %s", e.Message)
}

// SubmissionError marks an endpoint failure: unreachable, non-2xx, or a
// malformed response body. The job status is forced to failed; there is no
// automatic retry.
type SubmissionError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("submission failed (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("submission failed: %s", e.Message)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}
