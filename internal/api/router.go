package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/searchgame/internal/api/apierr"
	"github.com/mcoot/searchgame/internal/api/handler"
	"github.com/mcoot/searchgame/internal/api/middleware"
	"github.com/mcoot/searchgame/internal/dependencies/random"
	"github.com/mcoot/searchgame/internal/services/auth"
	"github.com/mcoot/searchgame/internal/services/iconset"
	"github.com/mcoot/searchgame/internal/services/leaderboard"
	"github.com/mcoot/searchgame/internal/services/session"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger             *slog.Logger
	AuthService        *auth.Service
	SessionService     *session.Service
	LeaderboardService *leaderboard.Service
	IconSetService     *iconset.Service
	Random             random.Random

	// AllowedOrigins for CORS; empty allows any origin
	AllowedOrigins []string
	// HealthChecks are pinged by /api/health (optional)
	HealthChecks map[string]handler.Pinger
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewNotFoundError())
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewMethodNotAllowedError())
	})

	// Create handlers
	healthHandler := handler.NewHealthHandler(cfg.HealthChecks, cfg.Logger)
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)
	gameHandler := handler.NewGameHandler(cfg.SessionService, cfg.LeaderboardService, cfg.Logger)
	iconHandler := handler.NewIconHandler(cfg.IconSetService, cfg.Random, cfg.Logger)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api").Subrouter()
	api.Use(loggingMiddleware)
	api.Use(recoveryMiddleware)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	// Auth routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)

	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(authMiddleware)
	authProtected.HandleFunc("/me", authHandler.Me).Methods(http.MethodGet)

	// Game routes; only the global leaderboard is public
	api.HandleFunc("/game/leaderboard", gameHandler.Leaderboard).Methods(http.MethodGet)

	game := api.PathPrefix("/game").Subrouter()
	game.Use(authMiddleware)
	game.HandleFunc("/start", gameHandler.Start).Methods(http.MethodPost)
	game.HandleFunc("/complete", gameHandler.Complete).Methods(http.MethodPost)
	game.HandleFunc("/leaderboard-with-context", gameHandler.LeaderboardWithContext).Methods(http.MethodGet)

	// Icon routes (no auth)
	api.HandleFunc("/icons/sets", iconHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/icons/sets/random", iconHandler.Random).Methods(http.MethodGet)
	api.HandleFunc("/icons/sets/random/{count}", iconHandler.Random).Methods(http.MethodGet)

	// CORS wraps the whole router so preflight requests never reach route matching
	return middleware.CORS(cfg.AllowedOrigins)(r)
}
