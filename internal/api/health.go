package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// HealthChecker is a dependency that can report its connectivity.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthFunc adapts a function to HealthChecker.
type HealthFunc func(ctx context.Context) error

// Health calls f.
func (f HealthFunc) Health(ctx context.Context) error { return f(ctx) }

// healthHandler checks every dependency and returns 503 if any is down.
func (s *Server) healthHandler(c *gin.Context) {
	// Create context with 3-second timeout for health check
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Checks:    make(map[string]string, len(s.deps.HealthChecks)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	for name, checker := range s.deps.HealthChecks {
		if err := checker.Health(ctx); err != nil {
			s.logger.Warn("Health check failed", "dependency", name, "error", err)
			response.Checks[name] = "disconnected"
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Checks[name] = "connected"
	}

	c.JSON(status, response)
}
