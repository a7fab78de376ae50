package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/entitybus/internal/observability"
	"github.com/upb/entitybus/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Reason    string            `json:"reason,omitempty"`
	Failures  int               `json:"failures,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthChecker is implemented by dependencies probed for readiness
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	checks  map[string]HealthChecker
	tracker *observability.DegradationTracker
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(checks map[string]HealthChecker, tracker *observability.DegradationTracker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		tracker: tracker,
		logger:  logger,
	}
}

// HandleHealth handles GET /health
// Liveness: 503 while an external dependency failure is inside the degradation window
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	httpStatus := http.StatusOK

	if h.tracker != nil {
		if health := h.tracker.Health(); health.Degraded {
			response.Status = "degraded"
			response.Reason = health.Reason
			response.Failures = int(health.FailureCount)
			httpStatus = http.StatusServiceUnavailable
		}
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write health response", zap.Error(err))
	}
}

// HandleReadiness handles GET /health/ready
// Readiness check - validates that all dependencies are available
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	allHealthy := true

	for name, checker := range h.checks {
		if err := checker.HealthCheck(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			checks[name] = "unhealthy"
			allHealthy = false
			continue
		}
		checks[name] = "healthy"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
