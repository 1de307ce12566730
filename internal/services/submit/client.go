package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reperio/internal/models"
	"github.com/ternarybob/reperio/internal/services/session"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the default backend address.
	DefaultBaseURL = "http://localhost:8085"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10

	submitPath = "/api/search/"
)

// submitResponse is the expected success body
type submitResponse struct {
	JobID string `json:"job_id"`
}

// Client submits search jobs to the backend endpoint. One submission is a
// single request/response exchange; on success the session is reset to a
// fresh pending job, on failure it is forced to failed.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	logger       arbor.ILogger
	limiter      *rate.Limiter
	validate     *validator.Validate
	defaultSites []string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom backend base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithDefaultSites sets the site list substituted when a request names none.
func WithDefaultSites(sites []string) ClientOption {
	return func(c *Client) {
		c.defaultSites = sites
	}
}

// NewClient creates a new submission client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		validate:     validator.New(),
		defaultSites: []string{"google_shopping"},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Validate runs the pre-submission checks on a request without any network
// I/O. Default sites are assumed for an empty site list, matching what
// Submit will send.
func (c *Client) Validate(req models.SearchRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return &ValidationError{Field: "prompt", Message: "must not be empty"}
	}
	if len(req.Sites) == 0 {
		req.Sites = append(req.Sites, c.defaultSites...)
	}
	if err := c.validate.Struct(req); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	if req.Filters != nil {
		if err := c.validate.Struct(req.Filters); err != nil {
			return &ValidationError{Field: "filters", Message: err.Error()}
		}
	}
	return nil
}

// Submit validates and submits a search request, recording the outcome in
// the session. Validation failures happen before any network I/O and leave
// the session untouched. A successful exchange clears the previous job's
// logs and results and installs a fresh pending handle for the returned ID.
func (c *Client) Submit(ctx context.Context, req models.SearchRequest, sess *session.Session) (models.JobHandle, error) {
	if err := c.Validate(req); err != nil {
		return models.JobHandle{}, err
	}
	if len(req.Sites) == 0 {
		req.Sites = append(req.Sites, c.defaultSites...)
	}

	jobID, err := c.post(ctx, req)
	if err != nil {
		sess.FailSubmission(err)
		return models.JobHandle{}, err
	}

	sess.Begin(jobID)

	if c.logger != nil {
		c.logger.Info().
			Str("job_id", jobID).
			Str("prompt", req.Prompt).
			Strs("sites", req.Sites).
			Msg("Search job submitted")
	}

	return models.JobHandle{ID: jobID, Status: models.JobStatusPending}, nil
}

// post performs the submission exchange
func (c *Client) post(ctx context.Context, req models.SearchRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &SubmissionError{Message: "rate limiter interrupted", Cause: err}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", &SubmissionError{Message: "failed to encode request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(body))
	if err != nil {
		return "", &SubmissionError{Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+submitPath).
			Msg("Submitting search job")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &SubmissionError{Message: "endpoint unreachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &SubmissionError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	var result submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &SubmissionError{Message: "malformed response body", Cause: err}
	}
	if result.JobID == "" {
		return "", &SubmissionError{Message: "response carried no job_id", Cause: fmt.Errorf("empty job_id")}
	}

	return result.JobID, nil
}
