package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHealth struct{ err error }

func (f fakeHealth) Health(context.Context) error { return f.err }

type fakeQueueLen struct {
	n   int
	err error
}

func (f fakeQueueLen) Len(context.Context) (int, error) { return f.n, f.err }

func TestHealthHandler(t *testing.T) {
	depth := func(n int) *int { return &n }

	tests := []struct {
		name       string
		storeErr   error
		jobs       QueueLen
		wantStatus int
		wantBody   HealthResponse
	}{
		{
			name:       "healthy without queue",
			wantStatus: http.StatusOK,
			wantBody:   HealthResponse{Status: "healthy", Qdrant: "connected"},
		},
		{
			name:       "qdrant down",
			storeErr:   errors.New("connection refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   HealthResponse{Status: "unhealthy", Qdrant: "disconnected"},
		},
		{
			name:       "reports queue depth",
			jobs:       fakeQueueLen{n: 3},
			wantStatus: http.StatusOK,
			wantBody:   HealthResponse{Status: "healthy", Qdrant: "connected", Queue: "connected", QueueDepth: depth(3)},
		},
		{
			name:       "empty queue still reports depth",
			jobs:       fakeQueueLen{},
			wantStatus: http.StatusOK,
			wantBody:   HealthResponse{Status: "healthy", Qdrant: "connected", Queue: "connected", QueueDepth: depth(0)},
		},
		{
			name:       "queue down",
			jobs:       fakeQueueLen{err: errors.New("redis: connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   HealthResponse{Status: "unhealthy", Qdrant: "connected", Queue: "disconnected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(fakeHealth{err: tt.storeErr}, tt.jobs).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tt.wantStatus, rec.Code)
			var body HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Timestamp)
			body.Timestamp = ""
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestHealthHandlerOmitsQueueFieldsWithoutQueue(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(fakeHealth{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotContains(t, rec.Body.String(), "queue")
}

func TestRouterMountsOptionalEndpoints(t *testing.T) {
	h := NewHandler(nil, nil, &fakeLister{}, &fakeAnswerer{}, 0, nil)
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pdfchat_uploads_total 1"))
	})
	router := NewRouter(h, RouterOptions{Health: fakeHealth{}, Queue: fakeQueueLen{n: 1}, Metrics: metricsHandler})

	for path, want := range map[string]int{"/health": 200, "/metrics": 200, "/": 200, "/mcp": 404} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}
}
