package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reperio/internal/interfaces"
	"github.com/ternarybob/reperio/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SearchStorage implements the SearchJobStorage interface for Badger
type SearchStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSearchStorage creates a new SearchStorage instance
func NewSearchStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SearchJobStorage {
	return &SearchStorage{
		db:     db,
		logger: logger,
	}
}

// SaveJob creates or replaces a job record
func (s *SearchStorage) SaveJob(ctx context.Context, job *interfaces.SearchJobRecord) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// GetJob returns a job by ID
func (s *SearchStorage) GetJob(ctx context.Context, jobID string) (*interfaces.SearchJobRecord, error) {
	var job interfaces.SearchJobRecord
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// UpdateStatus transitions a job's status
func (s *SearchStorage) UpdateStatus(ctx context.Context, jobID string, status models.JobStatus) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.Status = status
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

// AppendProducts adds products to a job's cumulative result snapshot
func (s *SearchStorage) AppendProducts(ctx context.Context, jobID string, products []models.Product) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	job.Products = append(job.Products, products...)
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to append products: %w", err)
	}
	return nil
}

// DeleteExpired removes jobs whose retention window has passed
func (s *SearchStorage) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	var expired []interfaces.SearchJobRecord
	if err := s.db.Store().Find(&expired, badgerhold.Where("ExpiresAt").Lt(now)); err != nil {
		return 0, fmt.Errorf("failed to query expired jobs: %w", err)
	}

	deleted := 0
	for i := range expired {
		if err := s.db.Store().Delete(expired[i].ID, &interfaces.SearchJobRecord{}); err != nil {
			s.logger.Warn().Err(err).Str("job_id", expired[i].ID).Msg("Failed to delete expired job")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Info().Int("count", deleted).Msg("Cleaned up expired search jobs")
	}

	return deleted, nil
}

// Close releases the underlying store
func (s *SearchStorage) Close() error {
	return s.db.Close()
}
