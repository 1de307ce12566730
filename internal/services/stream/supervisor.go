package stream

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reperio/internal/models"
	"github.com/ternarybob/reperio/internal/services/session"
)

// ChannelState is the lifecycle of one update channel instance. Any
// transition to closed is final for that instance; the supervisor never
// reconnects a dropped channel.
type ChannelState string

const (
	StateClosed  ChannelState = "closed"
	StateOpening ChannelState = "opening"
	StateOpen    ChannelState = "open"
)

// ChannelError marks a transport-level channel failure. It clears the
// connectivity flag but never changes job status.
type ChannelError struct {
	Op    string
	Cause error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("update channel %s failed: %v", e.Op, e.Cause)
}

func (e *ChannelError) Unwrap() error {
	return e.Cause
}

// channel is one connection instance bound to one job ID
type channel struct {
	jobID   string
	state   ChannelState
	conn    *websocket.Conn
	cancel  context.CancelFunc
	closing bool
	done    chan struct{}
}

// Supervisor owns the lifetime of the one update channel for the live job.
// On a job change or shutdown the previous channel is closed, and fully
// drained, before a new one is opened - two channels must never write into
// the same session.
type Supervisor struct {
	mu      sync.Mutex
	current *channel

	baseURL string
	dialer  *websocket.Dialer
	sess    *session.Session
	logger  arbor.ILogger
}

// SupervisorOption configures the Supervisor.
type SupervisorOption func(*Supervisor)

// WithDialer sets a custom websocket dialer.
func WithDialer(dialer *websocket.Dialer) SupervisorOption {
	return func(s *Supervisor) {
		s.dialer = dialer
	}
}

// NewSupervisor creates a supervisor dialing against the given backend base
// URL (http/https; the scheme is rewritten to ws/wss).
func NewSupervisor(baseURL string, sess *session.Session, logger arbor.ILogger, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer:  websocket.DefaultDialer,
		sess:    sess,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChannelURL builds the per-job channel address from an http(s) base URL
func ChannelURL(baseURL, jobID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = fmt.Sprintf("/ws/search/%s/", jobID)
	return u.String(), nil
}

// Open closes any current channel, waits for its reader to stop, then dials
// a new channel for the given job ID. The dial and read loop run on their
// own goroutine; the call returns once the previous channel is fully down.
func (s *Supervisor) Open(jobID string) {
	s.mu.Lock()
	prev := s.closeLocked()

	ctx, cancel := context.WithCancel(context.Background())
	ch := &channel{
		jobID:  jobID,
		state:  StateOpening,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.current = ch
	s.mu.Unlock()

	if prev != nil {
		<-prev.done
	}

	go s.run(ctx, ch)
}

// Close tears down the current channel, if any, and waits for its reader to
// stop. Closing a channel that was never successfully opened is a no-op
// beyond cancelling the dial.
func (s *Supervisor) Close() {
	s.mu.Lock()
	prev := s.closeLocked()
	s.mu.Unlock()

	if prev != nil {
		<-prev.done
	}
}

// State returns the state of the current channel instance
func (s *Supervisor) State() ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return StateClosed
	}
	return s.current.state
}

// closeLocked marks the current channel closing and interrupts its dial or
// read. Returns the channel so the caller can wait on done outside the lock.
func (s *Supervisor) closeLocked() *channel {
	ch := s.current
	if ch == nil || ch.state == StateClosed {
		return nil
	}
	ch.closing = true
	ch.cancel()
	if ch.conn != nil {
		ch.conn.Close()
	}
	return ch
}

// run dials the channel and pumps inbound messages into the session until
// the connection drops or the supervisor closes it.
func (s *Supervisor) run(ctx context.Context, ch *channel) {
	defer close(ch.done)
	// Release the context on any exit so the watchdog goroutine cannot
	// outlive the channel
	defer ch.cancel()

	wsURL, err := ChannelURL(s.baseURL, ch.jobID)
	if err != nil {
		s.finish(ch, &ChannelError{Op: "open", Cause: err})
		return
	}

	conn, resp, err := s.dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		s.mu.Lock()
		deliberate := ch.closing
		ch.state = StateClosed
		s.mu.Unlock()
		if !deliberate {
			s.finish(ch, &ChannelError{Op: "open", Cause: err})
		}
		return
	}

	s.mu.Lock()
	if ch.closing {
		s.mu.Unlock()
		conn.Close()
		s.markClosed(ch)
		return
	}
	ch.conn = conn
	ch.state = StateOpen
	s.mu.Unlock()

	s.sess.SetConnected(true)
	s.logger.Info().
		Str("job_id", ch.jobID).
		Msg("Update channel connected")

	// Interrupt a blocked read when the channel is cancelled
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			deliberate := ch.closing
			s.mu.Unlock()
			if deliberate || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.markClosed(ch)
				s.logger.Info().
					Str("job_id", ch.jobID).
					Msg("Update channel closed")
			} else {
				s.finish(ch, &ChannelError{Op: "read", Cause: err})
			}
			return
		}

		s.mu.Lock()
		stale := ch.closing
		s.mu.Unlock()
		if stale {
			continue
		}

		s.handleMessage(ch.jobID, data)
	}
}

// markClosed finalizes a deliberately closed channel without an error entry
func (s *Supervisor) markClosed(ch *channel) {
	s.mu.Lock()
	ch.state = StateClosed
	s.mu.Unlock()
	s.sess.SetConnected(false)
}

// finish finalizes a channel that failed. The connectivity flag is cleared
// and the failure becomes a narrative line; job status is left untouched.
func (s *Supervisor) finish(ch *channel, cherr *ChannelError) {
	s.mu.Lock()
	ch.state = StateClosed
	s.mu.Unlock()

	s.sess.SetConnected(false)
	s.sess.AppendLog(fmt.Sprintf("Update channel lost: %v", cherr.Cause))
	s.logger.Warn().
		Err(cherr).
		Str("job_id", ch.jobID).
		Msg("Update channel failed")
}

// handleMessage routes one inbound message into the session. Malformed
// payloads are logged and discarded; the channel stays open.
func (s *Supervisor) handleMessage(jobID string, data []byte) {
	event, err := models.DecodeUpdateEvent(data)
	if err != nil {
		s.sess.AppendLog("Discarded a malformed update message")
		s.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Msg("Malformed channel message discarded")
		return
	}

	if event.HasResults() {
		s.sess.ReplaceResults(*event.Results)
		s.sess.AppendLog(fmt.Sprintf("Received %d products", len(*event.Results)))
	}

	s.sess.AppendLogs(event.Logs)

	if event.HasStatus() {
		s.applyStatus(jobID, event.Status)
	}
}

// applyStatus folds a feed status into the session under the monotonic
// rule. A regression is anomaly-logged, never silently accepted. Each
// accepted running/completed/failed status synthesizes exactly one
// narrative line for this message.
func (s *Supervisor) applyStatus(jobID, raw string) {
	status, err := models.ParseJobStatus(raw)
	if err != nil {
		s.sess.AppendLog(fmt.Sprintf("Ignored unknown status %q", raw))
		s.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Msg("Unknown status value on update channel")
		return
	}

	if _, err := s.sess.ApplyStatus(status); err != nil {
		s.sess.AppendLog(fmt.Sprintf("Anomaly: %v", err))
		s.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Str("status", raw).
			Msg("Out-of-order status from update channel")
		return
	}

	switch status {
	case models.JobStatusRunning:
		s.sess.AppendLog("Search in progress...")
	case models.JobStatusCompleted:
		s.sess.AppendLog(fmt.Sprintf("Search completed successfully. Found %d products", len(s.sess.Results())))
	case models.JobStatusFailed:
		s.sess.AppendLog("Search failed. Please try again.")
	}
}
