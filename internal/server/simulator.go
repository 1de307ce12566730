package server

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reperio/internal/interfaces"
	"github.com/ternarybob/reperio/internal/models"
)

var (
	simMaterials = []string{"cotton", "silk", "polyester", "linen", "denim"}
	simSizes     = []string{"XS", "S", "M", "L", "XL", "XXL"}
	simVariants  = []string{"Classic", "Premium", "Slim Fit", "Casual", "Essential"}
)

// Simulator stands in for the scraping pipeline: it walks the requested
// sites, fabricates matching products with staggered delays, and moves the
// job through its lifecycle in the store. The WebSocket handler picks the
// changes up by polling, exactly like the real backend's consumer did
// against its database.
type Simulator struct {
	storage   interfaces.SearchJobStorage
	catalog   *Catalog
	logger    arbor.ILogger
	siteDelay time.Duration
	perSite   int
}

// NewSimulator creates a simulator over the given store and catalog
func NewSimulator(storage interfaces.SearchJobStorage, catalog *Catalog, logger arbor.ILogger) *Simulator {
	return &Simulator{
		storage:   storage,
		catalog:   catalog,
		logger:    logger,
		siteDelay: 400 * time.Millisecond,
		perSite:   5,
	}
}

// SetSiteDelay overrides the per-site pause (tests shrink it)
func (s *Simulator) SetSiteDelay(d time.Duration) {
	s.siteDelay = d
}

// Run executes one search job to a terminal state. Results accumulate in
// the store site by site so pollers observe growing cumulative snapshots.
func (s *Simulator) Run(ctx context.Context, jobID string) {
	job, err := s.storage.GetJob(ctx, jobID)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Simulator found no job to run")
		return
	}

	if err := s.storage.UpdateStatus(ctx, jobID, models.JobStatusRunning); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to mark job running")
		return
	}

	total := 0
	for _, siteName := range job.Sites {
		select {
		case <-ctx.Done():
			s.storage.UpdateStatus(context.Background(), jobID, models.JobStatusFailed)
			return
		case <-time.After(s.siteDelay):
		}

		site, ok := s.catalog.Get(siteName)
		if !ok || !site.Active {
			continue
		}

		products := s.generateProducts(job.Prompt, site, job.Filters)
		if len(products) == 0 {
			continue
		}
		if err := s.storage.AppendProducts(ctx, jobID, products); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to append products")
			continue
		}
		total += len(products)

		s.logger.Debug().
			Str("job_id", jobID).
			Str("site", siteName).
			Int("count", len(products)).
			Msg("Simulated site search")
	}

	final := models.JobStatusCompleted
	if total == 0 {
		final = models.JobStatusFailed
	}
	if err := s.storage.UpdateStatus(ctx, jobID, final); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to finalize job")
		return
	}

	s.logger.Info().
		Str("job_id", jobID).
		Str("status", string(final)).
		Int("products", total).
		Msg("Simulated search finished")
}

// generateProducts fabricates products for one site, honoring the request
// filters so the streamed snapshots look like a real filtered search.
func (s *Simulator) generateProducts(prompt string, site Site, filters *models.SearchFilters) []models.Product {
	minPrice, maxPrice := site.MinPrice, site.MaxPrice
	if filters != nil {
		if filters.MinPrice != nil && *filters.MinPrice > minPrice {
			minPrice = *filters.MinPrice
		}
		if filters.MaxPrice != nil && *filters.MaxPrice < maxPrice {
			maxPrice = *filters.MaxPrice
		}
	}
	if minPrice > maxPrice {
		return nil
	}

	title := strings.TrimSpace(prompt)
	if title == "" {
		title = "Product"
	}

	products := make([]models.Product, 0, s.perSite)
	for i := 0; i < s.perSite; i++ {
		material := simMaterials[rand.Intn(len(simMaterials))]
		size := simSizes[rand.Intn(len(simSizes))]
		if filters != nil {
			if filters.Material != "" {
				material = strings.ToLower(filters.Material)
			}
			if filters.Size != "" {
				size = strings.ToUpper(filters.Size)
			}
		}

		p := models.Product{
			Title:      fmt.Sprintf("%s %s", simVariants[i%len(simVariants)], titleCase(title)),
			Price:      round2(minPrice + rand.Float64()*(maxPrice-minPrice)),
			Size:       size,
			Material:   material,
			Category:   title,
			ImageURL:   fmt.Sprintf("https://%s.example.com/images/%d.jpg", site.Name, i),
			ProductURL: fmt.Sprintf("https://%s.example.com/products/%d", site.Name, i),
			Site:       site.Name,
			Confidence: round2(0.5 + rand.Float64()*0.5),
		}

		// Some listings have no rating, matching real feeds
		if rand.Intn(4) != 0 {
			rating := round2(3 + rand.Float64()*2)
			reviews := rand.Intn(2000)
			p.Rating = &rating
			p.ReviewsCount = &reviews
		}

		if filters != nil && filters.MinRating != nil {
			if p.Rating == nil || *p.Rating < *filters.MinRating {
				continue
			}
		}

		products = append(products, p)
	}

	return products
}

func round2(v float64) float64 {
	return float64(int(v*100)) / 100
}

// titleCase capitalizes each word of the prompt for display titles
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
