package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reperio/internal/common"
	"github.com/ternarybob/reperio/internal/interfaces"
	badgerstore "github.com/ternarybob/reperio/internal/storage/badger"
)

// Server is the simulator backend: the job submission endpoint, the per-job
// update channel and the health surface, over a Badger job store.
type Server struct {
	config  *common.Config
	logger  arbor.ILogger
	storage interfaces.SearchJobStorage
	janitor *Janitor
	server  *http.Server
}

// New builds the simulator server from configuration
func New(config *common.Config, logger arbor.ILogger) (*Server, error) {
	db, err := badgerstore.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open job store: %w", err)
	}
	storage := badgerstore.NewSearchStorage(db, logger)

	catalog, err := LoadCatalog(config.Server.SitesFile)
	if err != nil {
		storage.Close()
		return nil, err
	}

	simulator := NewSimulator(storage, catalog, logger)
	handler := NewHandler(storage, catalog, simulator, config.Server.JobTTLDuration(), logger)
	wsHandler := NewWebSocketHandler(storage, config.Server.PollIntervalDuration(), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/search/", handler.HandleSubmit)
	mux.HandleFunc("GET /api/search/{id}/", handler.HandleStatus)
	mux.HandleFunc("GET /api/health/", handler.HandleHealth)
	mux.HandleFunc("GET /ws/search/{id}/", wsHandler.HandleSearchSocket)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	s := &Server{
		config:  config,
		logger:  logger,
		storage: storage,
		janitor: NewJanitor(storage, logger),
		server: &http.Server{
			Addr:         addr,
			Handler:      withLogging(mux, logger),
			ReadTimeout:  15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	return s, nil
}

// Start runs the janitor and the HTTP server, blocking until shutdown
func (s *Server) Start() error {
	if err := s.janitor.Start(s.config.Server.CleanupCron); err != nil {
		return fmt.Errorf("failed to start janitor: %w", err)
	}

	s.logger.Info().
		Str("address", s.server.Addr).
		Msg("Simulator backend starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully stops the server, janitor and job store
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down simulator backend...")

	s.janitor.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if err := s.storage.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Job store close failed")
	}

	s.logger.Info().Msg("Simulator backend stopped")
	return nil
}

// withLogging logs each request at debug level
func withLogging(next http.Handler, logger arbor.ILogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("duration", time.Since(start).String()).
			Msg("Request handled")
	})
}
