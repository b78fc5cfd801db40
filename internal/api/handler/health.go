package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mcoot/searchgame/internal/api/apierr"
	"github.com/mcoot/searchgame/internal/api/response"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and, when pingers are configured, readiness
type HealthHandler struct {
	pingers map[string]Pinger
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(pingers map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		pingers: pingers,
		logger:  logger,
	}
}

// Health handles GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	for name, p := range h.pingers {
		if err := p.Ping(r.Context()); err != nil {
			h.logger.Warn("health check failed",
				slog.String("dependency", name),
				slog.String("error", err.Error()),
			)
			apierr.WriteError(w, apierr.NewUnavailableError())
			return
		}
	}

	response.JSON(w, http.StatusOK, response.HealthResponse{
		Status:  "ok",
		Message: "The Search Game API is running!",
	})
}
