package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/reperio/internal/interfaces"
	"github.com/ternarybob/reperio/internal/models"
	"github.com/ternarybob/reperio/internal/services/events"
	"github.com/ternarybob/reperio/internal/services/query"
	"github.com/ternarybob/reperio/internal/services/search"
	"github.com/ternarybob/reperio/internal/services/submit"
)

// runSearch submits one search, tails its narrative to the console, and
// prints a queried page of the results once the job finishes.
func runSearch() {
	eventService := events.NewService(logger)
	defer eventService.Close()

	searcher := search.NewSearcher(config.Backend.BaseURL, eventService, logger,
		search.WithClientOptions(
			submit.WithDefaultSites(config.Search.DefaultSites),
			submit.WithRateLimit(config.Backend.RateLimit),
			submit.WithHTTPClient(&http.Client{Timeout: config.Backend.TimeoutDuration()}),
		))
	defer searcher.Stop()

	// Tail the narrative as it accumulates
	eventService.Subscribe(interfaces.EventLogAppended, func(ctx context.Context, event interfaces.Event) error {
		if entry, ok := event.Payload.(models.LogEntry); ok {
			fmt.Println(entry.String())
		}
		return nil
	})

	done := make(chan models.JobStatus, 1)
	eventService.Subscribe(interfaces.EventStatusChanged, func(ctx context.Context, event interfaces.Event) error {
		if status, ok := event.Payload.(models.JobStatus); ok && status.IsTerminal() {
			select {
			case done <- status:
			default:
			}
		}
		return nil
	})

	req := models.NewSearchRequest(*searchPrompt, splitSites(*searchSites), buildFilters(), config.Search.DefaultSites)

	handle, err := searcher.Start(context.Background(), req)
	if err != nil {
		var verr *submit.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", verr)
			os.Exit(2)
		}
		logger.Error().Err(err).Msg("Search submission failed")
		os.Exit(1)
	}

	logger.Info().Str("job_id", handle.ID).Msg("Waiting for results")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case status := <-done:
		printResults(searcher, status)
	case <-sigChan:
		fmt.Println("\nInterrupted")
	}
}

// printResults queries and renders one page of the final result set
func printResults(searcher *search.Searcher, status models.JobStatus) {
	if status == models.JobStatusFailed {
		fmt.Println("\nSearch did not produce results.")
		return
	}

	state := query.NewState(config.Search.PageSize)
	state.SetSort(*sortField, query.Direction(*sortOrder))
	state.SetPage(*pageIndex)

	page := searcher.QueryResults(state)

	fmt.Printf("\n%d products (page %d of %d):\n\n", page.TotalCount, page.PageIndex, page.TotalPages)
	for i, p := range page.Items {
		rating := "-"
		if p.Rating != nil {
			rating = fmt.Sprintf("%.1f", *p.Rating)
		}
		fmt.Printf("%3d. %-14s %9.2f  %-5s %-45s %s\n",
			(page.PageIndex-1)*page.PageSize+i+1, p.Site, p.Price, rating, truncate(p.Title, 45), p.ProductURL)
	}
}

// buildFilters assembles the filter set from search flags; unset flags
// impose no constraint.
func buildFilters() *models.SearchFilters {
	filters := &models.SearchFilters{
		Category: *searchCategory,
		Material: *searchMaterial,
		Size:     *searchSize,
	}
	if *searchMinPrice >= 0 {
		v := *searchMinPrice
		filters.MinPrice = &v
	}
	if *searchMaxPrice >= 0 {
		v := *searchMaxPrice
		filters.MaxPrice = &v
	}
	if *searchRating >= 0 {
		v := *searchRating
		filters.MinRating = &v
	}
	if filters.IsZero() {
		return nil
	}
	return filters
}

func splitSites(raw string) []string {
	if raw == "" {
		return nil
	}
	var sites []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			sites = append(sites, s)
		}
	}
	return sites
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
