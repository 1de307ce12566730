package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reperio/internal/interfaces"
	"github.com/ternarybob/reperio/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// updateFrame is one outbound channel message. Status and results travel
// together as cumulative snapshots; logs are attached once on the terminal
// frame.
type updateFrame struct {
	Status  models.JobStatus `json:"status"`
	Results []models.Product `json:"results"`
	Logs    []string         `json:"logs,omitempty"`
}

// WebSocketHandler serves the per-job update channel. It polls the job
// store and pushes a frame whenever the status or the result count changes,
// then closes the connection once a terminal status has been delivered.
type WebSocketHandler struct {
	storage      interfaces.SearchJobStorage
	logger       arbor.ILogger
	pollInterval time.Duration
}

// NewWebSocketHandler creates the channel handler
func NewWebSocketHandler(storage interfaces.SearchJobStorage, pollInterval time.Duration, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		storage:      storage,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// HandleSearchSocket upgrades the connection and streams updates for one
// job until it finishes or the client goes away.
func (h *WebSocketHandler) HandleSearchSocket(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	h.logger.Info().Str("job_id", jobID).Msg("Update channel opened")

	// Detect client disconnect; the read pump discards any inbound frames
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	var lastStatus models.JobStatus
	lastCount := -1

	for {
		select {
		case <-clientGone:
			h.logger.Info().Str("job_id", jobID).Msg("Update channel client disconnected")
			return
		case <-ticker.C:
		}

		job, err := h.storage.GetJob(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, interfaces.ErrJobNotFound) {
				h.logger.Warn().Str("job_id", jobID).Msg("Job vanished, closing update channel")
			} else {
				h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to poll job")
			}
			h.sendClose(conn)
			return
		}

		statusChanged := job.Status != lastStatus
		countChanged := len(job.Products) != lastCount
		if !statusChanged && !countChanged {
			continue
		}

		frame := updateFrame{
			Status:  job.Status,
			Results: job.Products,
		}
		if job.Status.IsTerminal() {
			frame.Logs = generateLogs(job)
		}

		if err := conn.WriteJSON(frame); err != nil {
			h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to write update frame")
			return
		}
		lastStatus = job.Status
		lastCount = len(job.Products)

		h.logger.Debug().
			Str("job_id", jobID).
			Str("status", string(job.Status)).
			Int("results", len(job.Products)).
			Msg("Update frame sent")

		if job.Status.IsTerminal() {
			h.sendClose(conn)
			h.logger.Info().
				Str("job_id", jobID).
				Str("status", string(job.Status)).
				Msg("Job finished, closing update channel")
			return
		}
	}
}

// sendClose delivers a normal close frame so well-behaved clients shut
// down without logging an error.
func (h *WebSocketHandler) sendClose(conn *websocket.Conn) {
	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}
