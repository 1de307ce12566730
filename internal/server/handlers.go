package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reperio/internal/common"
	"github.com/ternarybob/reperio/internal/interfaces"
	"github.com/ternarybob/reperio/internal/models"
)

// Handler serves the simulator's HTTP API: job submission, job status and
// health. Shapes match the external interface the client core expects.
type Handler struct {
	storage      interfaces.SearchJobStorage
	catalog      *Catalog
	simulator    *Simulator
	logger       arbor.ILogger
	jobTTL       time.Duration
	defaultSites []string
}

// NewHandler creates the API handler
func NewHandler(storage interfaces.SearchJobStorage, catalog *Catalog, simulator *Simulator, jobTTL time.Duration, logger arbor.ILogger) *Handler {
	return &Handler{
		storage:      storage,
		catalog:      catalog,
		simulator:    simulator,
		logger:       logger,
		jobTTL:       jobTTL,
		defaultSites: []string{"google_shopping"},
	}
}

type submitPayload struct {
	Prompt  string                `json:"prompt"`
	Sites   []string              `json:"sites"`
	Filters *models.SearchFilters `json:"filters"`
}

// HandleSubmit accepts a search request and replies 202 with the new
// job ID. The simulated search runs on its own goroutine.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(payload.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt must be a non-empty string")
		return
	}

	sites := payload.Sites
	if len(sites) == 0 {
		sites = h.defaultSites
	}
	if invalid := h.catalog.InvalidSites(sites); len(invalid) > 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid or inactive sites: %s", strings.Join(invalid, ", ")))
		return
	}

	now := time.Now()
	job := &interfaces.SearchJobRecord{
		ID:        common.NewJobID(),
		Prompt:    strings.TrimSpace(payload.Prompt),
		Sites:     sites,
		Filters:   normalizeFilters(payload.Filters),
		Status:    models.JobStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(h.jobTTL),
	}

	if err := h.storage.SaveJob(r.Context(), job); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save search job")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info().
		Str("job_id", job.ID).
		Str("prompt", job.Prompt).
		Strs("sites", job.Sites).
		Msg("Search job created")

	go h.simulator.Run(context.Background(), job.ID)

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// HandleStatus returns a job's status, cumulative results and generated
// narrative.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	job, err := h.storage.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to load search job")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  job.Status,
		"results": job.Products,
		"logs":    generateLogs(job),
	})
}

// HandleHealth reports service health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "reperio-simulator",
	})
}

// normalizeFilters drops out-of-range filter values instead of rejecting
// the request, matching the lenient contract of the submission endpoint.
func normalizeFilters(f *models.SearchFilters) *models.SearchFilters {
	if f == nil {
		return nil
	}

	out := &models.SearchFilters{Category: f.Category, Site: f.Site}

	if f.MinPrice != nil && *f.MinPrice >= 0 {
		out.MinPrice = f.MinPrice
	}
	if f.MaxPrice != nil && *f.MaxPrice >= 0 {
		out.MaxPrice = f.MaxPrice
	}
	if f.MinRating != nil && *f.MinRating >= 0 && *f.MinRating <= 5 {
		out.MinRating = f.MinRating
	}

	material := strings.ToLower(f.Material)
	for _, valid := range simMaterials {
		if material == valid {
			out.Material = material
			break
		}
	}

	size := strings.ToUpper(f.Size)
	for _, valid := range simSizes {
		if size == valid {
			out.Size = size
			break
		}
	}

	return out
}

// generateLogs derives the narrative lines for a job from its current
// status and results.
func generateLogs(job *interfaces.SearchJobRecord) []string {
	logs := []string{}

	switch job.Status {
	case models.JobStatusPending:
		logs = append(logs, "Search job created and queued for processing")
	case models.JobStatusRunning:
		logs = append(logs, "Search in progress")
		for _, site := range job.Sites {
			logs = append(logs, fmt.Sprintf("Searching %s...", site))
		}
	case models.JobStatusCompleted:
		logs = append(logs, fmt.Sprintf("Search completed successfully. Found %d products", len(job.Products)))
		siteCounts := map[string]int{}
		for _, p := range job.Products {
			siteCounts[p.Site]++
		}
		for _, site := range job.Sites {
			if count := siteCounts[site]; count > 0 {
				logs = append(logs, fmt.Sprintf("Found %d products on %s", count, site))
			}
		}
	case models.JobStatusFailed:
		logs = append(logs, "Search failed. Please try again.")
	}

	return logs
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
