package models

import (
	"fmt"
	"time"
)

// LogEntry is one line of the job's human-readable narrative. Entries are
// append-only and never reordered or deduplicated; the sequence is reset as
// a whole when a new job replaces the live one.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// NewLogEntry creates a log entry stamped with the current time
func NewLogEntry(message string) LogEntry {
	return LogEntry{
		Timestamp: time.Now(),
		Message:   message,
	}
}

// String formats the entry for console display
func (e LogEntry) String() string {
	return fmt.Sprintf("%s %s", e.Timestamp.Format("15:04:05"), e.Message)
}
