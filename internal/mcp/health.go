package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mike-a-ellis/navindex/internal/storage"
)

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status      string         `json:"status"`
	Store       string         `json:"store"`
	Collections map[string]int `json:"collections,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

// StoreProbe is the part of storage.VectorStore the health check uses.
type StoreProbe interface {
	Health(ctx context.Context) error
	Count(ctx context.Context, collection string) (int, error)
}

// NewHealthHandler reports store connectivity and the size of both collections.
// An unreachable store answers 503; a failed count only degrades the status.
func NewHealthHandler(store StoreProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Store:     "connected",
			Timestamp: formatTime(time.Now()),
		}
		code := http.StatusOK

		if err := store.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Store = "disconnected"
			code = http.StatusServiceUnavailable
		} else {
			response.Collections = make(map[string]int, 2)
			for _, name := range []string{storage.CodeCollection, storage.DocsCollection} {
				n, err := store.Count(ctx, name)
				if err != nil {
					response.Status = "degraded"
					continue
				}
				response.Collections[name] = n
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(response)
	}
}
