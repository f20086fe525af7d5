package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the /health body. Queue fields are omitted when no
// queue is wired.
type HealthResponse struct {
	Status     string `json:"status"`
	Qdrant     string `json:"qdrant"`
	Queue      string `json:"queue,omitempty"`
	QueueDepth *int   `json:"queue_depth,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// HealthChecker is implemented by the vector store.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// QueueLen reports pending ingestion jobs. queue.Queue satisfies it.
type QueueLen interface {
	Len(ctx context.Context) (int, error)
}

// NewHealthHandler answers 200 when Qdrant and the job queue are reachable
// and 503 otherwise. jobs may be nil.
func NewHealthHandler(store HealthChecker, jobs QueueLen) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Qdrant:    "connected",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if err := store.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Qdrant = "disconnected"
		}
		if jobs != nil {
			response.Queue = "connected"
			if n, err := jobs.Len(ctx); err != nil {
				response.Status = "unhealthy"
				response.Queue = "disconnected"
			} else {
				response.QueueDepth = &n
			}
		}

		status := http.StatusOK
		if response.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}
}
