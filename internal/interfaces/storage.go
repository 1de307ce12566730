package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/reperio/internal/models"
)

// ErrJobNotFound is returned when a job ID has no stored record
var ErrJobNotFound = errors.New("job not found")

// SearchJobStorage persists simulator-side search jobs. The client core
// never touches storage; only the serve-mode backend does.
type SearchJobStorage interface {
	// SaveJob creates or replaces a job record
	SaveJob(ctx context.Context, job *SearchJobRecord) error

	// GetJob returns a job by ID, or ErrJobNotFound
	GetJob(ctx context.Context, jobID string) (*SearchJobRecord, error)

	// UpdateStatus transitions a job's status
	UpdateStatus(ctx context.Context, jobID string, status models.JobStatus) error

	// AppendProducts adds products to a job's cumulative result snapshot
	AppendProducts(ctx context.Context, jobID string, products []models.Product) error

	// DeleteExpired removes jobs whose ExpiresAt has passed, returning the count
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	// Close releases the underlying store
	Close() error
}

// SearchJobRecord is the persisted shape of a simulator search job
type SearchJobRecord struct {
	ID        string                `badgerhold:"key"`
	Prompt    string
	Sites     []string
	Filters   *models.SearchFilters
	Status    models.JobStatus      `badgerholdIndex:"Status"`
	Products  []models.Product
	CreatedAt time.Time
	ExpiresAt time.Time
}
