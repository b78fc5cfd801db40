package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/searchgame/internal/api/apierr"
	"github.com/mcoot/searchgame/internal/middleware"
)

// writeError writes err as an API error, logging anything that maps to a
// server failure since its detail is not sent to the client
func writeError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	if apierr.Status(err) >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("request_id", middleware.RequestID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	apierr.WriteError(w, err)
}
