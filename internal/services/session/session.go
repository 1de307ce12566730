package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reperio/internal/interfaces"
	"github.com/ternarybob/reperio/internal/models"
)

// Session holds the state of the one live search job: its handle, the
// append-only log narrative and the latest result snapshot. Only the
// submission client and the update channel supervisor mutate it; everything
// else reads snapshot copies. Logs and results are cleared together exactly
// once per new submission.
type Session struct {
	mu        sync.RWMutex
	jobID     string
	status    models.JobStatus
	hasJob    bool
	connected bool
	logs      []models.LogEntry
	results   []models.Product

	events interfaces.EventService
	logger arbor.ILogger
}

// New creates an empty session in the no-job state
func New(eventService interfaces.EventService, logger arbor.ILogger) *Session {
	return &Session{
		events: eventService,
		logger: logger,
	}
}

// Begin replaces the live job. The previous handle is discarded, logs and
// results are cleared as a unit, and the job starts from a fresh pending
// state regardless of how the previous job ended.
func (s *Session) Begin(jobID string) {
	s.mu.Lock()
	s.jobID = jobID
	s.status = models.JobStatusPending
	s.hasJob = true
	s.logs = nil
	s.results = nil
	entry := models.NewLogEntry(fmt.Sprintf("Search job %s accepted", jobID))
	s.logs = append(s.logs, entry)
	s.mu.Unlock()

	s.logger.Info().
		Str("job_id", jobID).
		Msg("New search job started")

	s.publish(interfaces.EventStatusChanged, models.JobStatusPending)
	s.publish(interfaces.EventLogAppended, entry)
}

// FailSubmission records a submission that never produced a job. The
// previous job is discarded along with its logs and results, the status is
// forced to failed and a descriptive entry starts the new narrative.
func (s *Session) FailSubmission(cause error) {
	s.mu.Lock()
	s.jobID = ""
	s.status = models.JobStatusFailed
	s.hasJob = false
	s.logs = nil
	s.results = nil
	entry := models.NewLogEntry(fmt.Sprintf("Search submission failed: %v", cause))
	s.logs = append(s.logs, entry)
	s.mu.Unlock()

	s.logger.Warn().
		Err(cause).
		Msg("Search submission failed")

	s.publish(interfaces.EventStatusChanged, models.JobStatusFailed)
	s.publish(interfaces.EventLogAppended, entry)
}

// ApplyStatus applies a status received from the feed under the monotonic
// transition rule. A regression is not applied; it is reported back so the
// caller can log the anomaly. The bool reports whether the status now held
// differs from the one held before.
func (s *Session) ApplyStatus(next models.JobStatus) (changed bool, err error) {
	s.mu.Lock()
	if !s.hasJob {
		s.mu.Unlock()
		return false, fmt.Errorf("no live job")
	}
	current := s.status
	if !current.CanTransitionTo(next) {
		s.mu.Unlock()
		return false, fmt.Errorf("status regression %s -> %s ignored", current, next)
	}
	s.status = next
	s.mu.Unlock()

	if current != next {
		s.logger.Info().
			Str("job_id", s.JobID()).
			Str("old_status", string(current)).
			Str("new_status", string(next)).
			Msg("Job status changed")
		s.publish(interfaces.EventStatusChanged, next)
		return true, nil
	}
	return false, nil
}

// AppendLog appends one narrative line, stamped now
func (s *Session) AppendLog(message string) {
	entry := models.NewLogEntry(message)
	s.mu.Lock()
	s.logs = append(s.logs, entry)
	s.mu.Unlock()

	s.publish(interfaces.EventLogAppended, entry)
}

// AppendLogs appends feed-supplied lines in arrival order
func (s *Session) AppendLogs(messages []string) {
	if len(messages) == 0 {
		return
	}
	entries := make([]models.LogEntry, len(messages))
	for i, m := range messages {
		entries[i] = models.NewLogEntry(m)
	}
	s.mu.Lock()
	s.logs = append(s.logs, entries...)
	s.mu.Unlock()

	for _, entry := range entries {
		s.publish(interfaces.EventLogAppended, entry)
	}
}

// ReplaceResults installs a new result snapshot wholesale. The feed sends
// cumulative snapshots, not deltas, so last write wins by design.
func (s *Session) ReplaceResults(products []models.Product) {
	snapshot := make([]models.Product, len(products))
	copy(snapshot, products)

	s.mu.Lock()
	s.results = snapshot
	s.mu.Unlock()

	s.publish(interfaces.EventResultsReplaced, len(snapshot))
}

// SetConnected records channel connectivity. Connectivity never changes job
// status; that moves only on explicit status events or submission failure.
func (s *Session) SetConnected(connected bool) {
	s.mu.Lock()
	if s.connected == connected {
		s.mu.Unlock()
		return
	}
	s.connected = connected
	s.mu.Unlock()

	s.publish(interfaces.EventConnectionChanged, connected)
}

// JobID returns the live job identifier, empty when no job is live
func (s *Session) JobID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobID
}

// Handle returns the live job handle and whether one exists
func (s *Session) Handle() (models.JobHandle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.JobHandle{ID: s.jobID, Status: s.status}, s.hasJob
}

// Status returns the current job status ("" before any submission)
func (s *Session) Status() models.JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Connected reports whether an update channel is currently open
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Logs returns a copy of the narrative so far
func (s *Session) Logs() []models.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := make([]models.LogEntry, len(s.logs))
	copy(logs, s.logs)
	return logs
}

// Results returns a copy of the latest result snapshot
func (s *Session) Results() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]models.Product, len(s.results))
	copy(results, s.results)
	return results
}

func (s *Session) publish(eventType interfaces.EventType, payload interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(context.Background(), interfaces.Event{
		Type:    eventType,
		Payload: payload,
	})
}
