package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/searchgame/internal/api/middleware"
	"github.com/mcoot/searchgame/internal/api/request"
	"github.com/mcoot/searchgame/internal/api/response"
	"github.com/mcoot/searchgame/internal/services/auth"
)

// AuthHandler handles registration and identity endpoints
type AuthHandler struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := request.Decode(w, r, &req); err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	reg, err := h.authService.Register(r.Context(), req.Name, req.Phone)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	status, message := http.StatusOK, "Welcome back!"
	if reg.Created {
		status, message = http.StatusCreated, "Registration successful!"
	}

	response.JSON(w, status, response.RegisterResponse{
		Message: message,
		User:    response.UserFromModel(reg.User),
		Token:   reg.Token,
	})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.Me(r.Context(), middleware.MustGetUserID(r.Context()))
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MeResponse{User: response.UserFromModel(user)})
}
