package submit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/reperio/internal/models"
	"github.com/ternarybob/reperio/internal/services/session"
)

func createTestSession() *session.Session {
	return session.New(nil, arbor.NewLogger())
}

func TestSubmitEmptyPromptNoNetworkIO(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	sess := createTestSession()

	for _, prompt := range []string{"", "   ", "\t\n"} {
		_, err := client.Submit(context.Background(), models.SearchRequest{Prompt: prompt, Sites: []string{"myntra"}}, sess)
		require.Error(t, err)
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr))
	}

	assert.Equal(t, int64(0), atomic.LoadInt64(&calls))
	// Session untouched: still no job
	_, ok := sess.Handle()
	assert.False(t, ok)
}

func TestSubmitDefaultsSites(t *testing.T) {
	var gotSites []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotSites = req.Sites
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"job_id": "job_1"})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithDefaultSites([]string{"google_shopping"}))
	sess := createTestSession()

	_, err := client.Submit(context.Background(), models.SearchRequest{Prompt: "red shirt"}, sess)
	require.NoError(t, err)
	assert.Equal(t, []string{"google_shopping"}, gotSites)
}

func TestSubmitSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/search/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"job_id": "J1"})
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithLogger(arbor.NewLogger()))
	sess := createTestSession()

	// Seed prior job state to prove it is cleared
	sess.Begin("job_old")
	sess.ReplaceResults([]models.Product{{Title: "Old"}})

	handle, err := client.Submit(context.Background(), models.SearchRequest{Prompt: "red shirt", Sites: []string{"myntra"}}, sess)
	require.NoError(t, err)

	assert.Equal(t, "J1", handle.ID)
	assert.Equal(t, models.JobStatusPending, handle.Status)

	assert.Equal(t, "J1", sess.JobID())
	assert.Equal(t, models.JobStatusPending, sess.Status())
	assert.Empty(t, sess.Results())

	logs := sess.Logs()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "J1")
}

func TestSubmitNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"prompt must be a non-empty string"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	sess := createTestSession()

	_, err := client.Submit(context.Background(), models.SearchRequest{Prompt: "red shirt", Sites: []string{"myntra"}}, sess)
	require.Error(t, err)

	var serr *SubmissionError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusBadRequest, serr.StatusCode)

	assert.Equal(t, models.JobStatusFailed, sess.Status())
	logs := sess.Logs()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "submission failed")
}

func TestSubmitMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	sess := createTestSession()

	_, err := client.Submit(context.Background(), models.SearchRequest{Prompt: "red shirt", Sites: []string{"myntra"}}, sess)

	var serr *SubmissionError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, models.JobStatusFailed, sess.Status())
}

func TestSubmitMissingJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	sess := createTestSession()

	_, err := client.Submit(context.Background(), models.SearchRequest{Prompt: "red shirt", Sites: []string{"myntra"}}, sess)

	var serr *SubmissionError
	require.True(t, errors.As(err, &serr))
}

func TestSubmitEndpointUnreachable(t *testing.T) {
	client := NewClient(WithBaseURL("http://127.0.0.1:1"))
	sess := createTestSession()

	_, err := client.Submit(context.Background(), models.SearchRequest{Prompt: "red shirt", Sites: []string{"myntra"}}, sess)

	var serr *SubmissionError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, models.JobStatusFailed, sess.Status())
}

func TestValidate(t *testing.T) {
	client := NewClient(WithDefaultSites([]string{"google_shopping"}))
	bad := -5.0

	tests := []struct {
		name    string
		req     models.SearchRequest
		wantErr bool
	}{
		{"valid", models.SearchRequest{Prompt: "red shirt", Sites: []string{"myntra"}}, false},
		{"empty sites fall back to defaults", models.SearchRequest{Prompt: "red shirt"}, false},
		{"blank prompt", models.SearchRequest{Prompt: " \t ", Sites: []string{"myntra"}}, true},
		{"negative price filter", models.SearchRequest{
			Prompt:  "red shirt",
			Sites:   []string{"myntra"},
			Filters: &models.SearchFilters{MinPrice: &bad},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Validate(tt.req)
			if tt.wantErr {
				var verr *ValidationError
				require.Error(t, err)
				assert.True(t, errors.As(err, &verr))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSubmitInvalidFilters(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	sess := createTestSession()

	bad := -5.0
	req := models.SearchRequest{
		Prompt:  "red shirt",
		Sites:   []string{"myntra"},
		Filters: &models.SearchFilters{MinPrice: &bad},
	}

	_, err := client.Submit(context.Background(), req, sess)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, int64(0), atomic.LoadInt64(&calls))
}
