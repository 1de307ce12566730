package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reperio/internal/common"
	"github.com/ternarybob/reperio/internal/interfaces"
	"github.com/ternarybob/reperio/internal/models"
	badgerstore "github.com/ternarybob/reperio/internal/storage/badger"
)

func createTestStorage(t *testing.T) interfaces.SearchJobStorage {
	t.Helper()
	db, err := badgerstore.NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	storage := badgerstore.NewSearchStorage(db, arbor.NewLogger())
	t.Cleanup(func() { storage.Close() })
	return storage
}

func createTestHandler(t *testing.T) (*Handler, interfaces.SearchJobStorage) {
	t.Helper()
	storage := createTestStorage(t)
	catalog := DefaultCatalog()
	simulator := NewSimulator(storage, catalog, arbor.NewLogger())
	simulator.SetSiteDelay(time.Millisecond)
	return NewHandler(storage, catalog, simulator, time.Hour, arbor.NewLogger()), storage
}

func createTestMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/search/", h.HandleSubmit)
	mux.HandleFunc("GET /api/search/{id}/", h.HandleStatus)
	mux.HandleFunc("GET /api/health/", h.HandleHealth)
	return mux
}

func TestHandleSubmitAccepted(t *testing.T) {
	h, storage := createTestHandler(t)
	mux := createTestMux(h)

	body := `{"prompt":"red shirt","sites":["myntra"]}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/search/", strings.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["job_id"])
	assert.True(t, strings.HasPrefix(resp["job_id"], "job_"))

	job, err := storage.GetJob(context.Background(), resp["job_id"])
	require.NoError(t, err)
	assert.Equal(t, "red shirt", job.Prompt)
	assert.Equal(t, []string{"myntra"}, job.Sites)
}

func TestHandleSubmitValidation(t *testing.T) {
	h, _ := createTestHandler(t)
	mux := createTestMux(h)

	tests := []struct {
		name string
		body string
	}{
		{"missing prompt", `{"sites":["myntra"]}`},
		{"blank prompt", `{"prompt":"   "}`},
		{"invalid body", `{not json`},
		{"unknown site", `{"prompt":"red shirt","sites":["nope"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/search/", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestHandleSubmitDefaultsSites(t *testing.T) {
	h, storage := createTestHandler(t)
	mux := createTestMux(h)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/search/", strings.NewReader(`{"prompt":"red shirt"}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	job, err := storage.GetJob(context.Background(), resp["job_id"])
	require.NoError(t, err)
	assert.Equal(t, []string{"google_shopping"}, job.Sites)
}

func TestHandleStatus(t *testing.T) {
	h, storage := createTestHandler(t)
	mux := createTestMux(h)

	job := &interfaces.SearchJobRecord{
		ID:        "job_1",
		Prompt:    "red shirt",
		Sites:     []string{"myntra"},
		Status:    models.JobStatusCompleted,
		Products:  []models.Product{{Title: "Red Shirt", Price: 499, Site: "myntra"}},
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, storage.SaveJob(context.Background(), job))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search/job_1/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status  string           `json:"status"`
		Results []models.Product `json:"results"`
		Logs    []string         `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	require.Len(t, resp.Results, 1)
	assert.Contains(t, resp.Logs, "Search completed successfully. Found 1 products")
	assert.Contains(t, resp.Logs, "Found 1 products on myntra")
}

func TestHandleStatusNotFound(t *testing.T) {
	h, _ := createTestHandler(t)
	mux := createTestMux(h)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search/missing/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	h, _ := createTestHandler(t)
	mux := createTestMux(h)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "reperio-simulator", resp["service"])
}

func TestNormalizeFilters(t *testing.T) {
	badPrice := -10.0
	goodPrice := 100.0
	badRating := 7.0

	in := &models.SearchFilters{
		MinPrice:  &badPrice,
		MaxPrice:  &goodPrice,
		MinRating: &badRating,
		Material:  "COTTON",
		Size:      "m",
	}

	out := normalizeFilters(in)

	assert.Nil(t, out.MinPrice, "negative price dropped")
	require.NotNil(t, out.MaxPrice)
	assert.Equal(t, 100.0, *out.MaxPrice)
	assert.Nil(t, out.MinRating, "out-of-range rating dropped")
	assert.Equal(t, "cotton", out.Material)
	assert.Equal(t, "M", out.Size)

	out = normalizeFilters(&models.SearchFilters{Material: "kevlar", Size: "XXXL"})
	assert.Empty(t, out.Material)
	assert.Empty(t, out.Size)

	assert.Nil(t, normalizeFilters(nil))
}
