package search

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reperio/internal/interfaces"
	"github.com/ternarybob/reperio/internal/models"
	"github.com/ternarybob/reperio/internal/services/query"
	"github.com/ternarybob/reperio/internal/services/session"
	"github.com/ternarybob/reperio/internal/services/stream"
	"github.com/ternarybob/reperio/internal/services/submit"
)

// Searcher drives the search job lifecycle: it submits a request, hands the
// issued job ID to the channel supervisor, and exposes the session's
// read-only surface plus the query engine over the accumulated results.
// One search is live at a time; starting a new one tears the old channel
// down first.
type Searcher struct {
	sess       *session.Session
	client     *submit.Client
	supervisor *stream.Supervisor
	logger     arbor.ILogger
}

// Option configures the Searcher.
type Option func(*config)

type config struct {
	clientOpts     []submit.ClientOption
	supervisorOpts []stream.SupervisorOption
}

// WithClientOptions forwards options to the submission client.
func WithClientOptions(opts ...submit.ClientOption) Option {
	return func(c *config) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

// WithSupervisorOptions forwards options to the channel supervisor.
func WithSupervisorOptions(opts ...stream.SupervisorOption) Option {
	return func(c *config) {
		c.supervisorOpts = append(c.supervisorOpts, opts...)
	}
}

// NewSearcher wires a session, submission client and channel supervisor
// against one backend base URL.
func NewSearcher(baseURL string, eventService interfaces.EventService, logger arbor.ILogger, opts ...Option) *Searcher {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	sess := session.New(eventService, logger)
	clientOpts := append([]submit.ClientOption{
		submit.WithBaseURL(baseURL),
		submit.WithLogger(logger),
	}, cfg.clientOpts...)

	return &Searcher{
		sess:       sess,
		client:     submit.NewClient(clientOpts...),
		supervisor: stream.NewSupervisor(baseURL, sess, logger, cfg.supervisorOpts...),
		logger:     logger,
	}
}

// Start submits a search and opens its update channel. The request is
// validated before anything else: a rejected request performs no I/O and
// leaves the previous job's state, including its live channel, intact. Only
// then is any channel still open for a previous job closed - that ordering
// keeps a single writer on the session.
func (s *Searcher) Start(ctx context.Context, req models.SearchRequest) (models.JobHandle, error) {
	if err := s.client.Validate(req); err != nil {
		return models.JobHandle{}, err
	}

	s.supervisor.Close()

	handle, err := s.client.Submit(ctx, req, s.sess)
	if err != nil {
		return models.JobHandle{}, err
	}

	s.supervisor.Open(handle.ID)
	return handle, nil
}

// Stop closes the update channel without touching job state
func (s *Searcher) Stop() {
	s.supervisor.Close()
}

// Session exposes the read-only state surface
func (s *Searcher) Session() *session.Session {
	return s.sess
}

// ChannelState reports the current update channel state
func (s *Searcher) ChannelState() stream.ChannelState {
	return s.supervisor.State()
}

// QueryResults evaluates a query state over the current result snapshot
func (s *Searcher) QueryResults(state query.State) query.Page {
	return query.Query(s.sess.Results(), state)
}
