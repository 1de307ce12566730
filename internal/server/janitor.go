package server

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reperio/internal/interfaces"
)

// Janitor purges expired search jobs on a cron schedule
type Janitor struct {
	cron    *cron.Cron
	storage interfaces.SearchJobStorage
	logger  arbor.ILogger
}

// NewJanitor creates a janitor over the job store
func NewJanitor(storage interfaces.SearchJobStorage, logger arbor.ILogger) *Janitor {
	return &Janitor{
		cron:    cron.New(),
		storage: storage,
		logger:  logger,
	}
}

// Start schedules the cleanup and begins running it
func (j *Janitor) Start(schedule string) error {
	if _, err := j.cron.AddFunc(schedule, j.purge); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info().Str("schedule", schedule).Msg("Job janitor started")
	return nil
}

// Stop halts the schedule, waiting for a running purge to finish
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Janitor) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := j.storage.DeleteExpired(ctx, time.Now())
	if err != nil {
		j.logger.Error().Err(err).Msg("Expired job cleanup failed")
		return
	}
	if deleted > 0 {
		j.logger.Info().Int("deleted", deleted).Msg("Expired job cleanup done")
	}
}
