package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/searchgame/internal/api/middleware"
	"github.com/mcoot/searchgame/internal/api/request"
	"github.com/mcoot/searchgame/internal/api/response"
	"github.com/mcoot/searchgame/internal/model"
	"github.com/mcoot/searchgame/internal/services/leaderboard"
	"github.com/mcoot/searchgame/internal/services/session"
)

// GameHandler handles session and leaderboard endpoints
type GameHandler struct {
	sessionService     *session.Service
	leaderboardService *leaderboard.Service
	logger             *slog.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(sessionService *session.Service, leaderboardService *leaderboard.Service, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		sessionService:     sessionService,
		leaderboardService: leaderboardService,
		logger:             logger,
	}
}

// Start handles POST /api/game/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionService.Start(r.Context(), middleware.MustGetUserID(r.Context()))
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StartResponse{
		Message:   "Game session started",
		SessionID: string(sess.ID),
		StartTime: sess.StartTime,
	})
}

// Complete handles POST /api/game/complete
func (h *GameHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req request.CompleteRequest
	if err := request.Decode(w, r, &req); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	sess, err := h.sessionService.Complete(r.Context(),
		middleware.MustGetUserID(r.Context()),
		model.SessionID(req.SessionID),
		req.TotalTime,
	)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CompleteResponse{
		Message: "Game completed successfully",
		Session: response.SessionFromModel(sess),
	})
}

// Leaderboard handles GET /api/game/leaderboard
func (h *GameHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.leaderboardService.Top(r.Context())
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(lb))
}

// LeaderboardWithContext handles GET /api/game/leaderboard-with-context
func (h *GameHandler) LeaderboardWithContext(w http.ResponseWriter, r *http.Request) {
	view, err := h.leaderboardService.WithContext(r.Context(), middleware.MustGetUserID(r.Context()))
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ContextLeaderboardFromModel(view))
}
