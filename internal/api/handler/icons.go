package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/searchgame/internal/api/apierr"
	"github.com/mcoot/searchgame/internal/api/response"
	"github.com/mcoot/searchgame/internal/dependencies/random"
	"github.com/mcoot/searchgame/internal/services/iconset"
)

// IconHandler handles icon set endpoints
type IconHandler struct {
	iconService *iconset.Service
	random      random.Random
	logger      *slog.Logger
}

// NewIconHandler creates a new icon handler. rnd is used unless a request
// supplies a seed.
func NewIconHandler(iconService *iconset.Service, rnd random.Random, logger *slog.Logger) *IconHandler {
	return &IconHandler{
		iconService: iconService,
		random:      rnd,
		logger:      logger,
	}
}

// List handles GET /api/icons/sets
func (h *IconHandler) List(w http.ResponseWriter, r *http.Request) {
	sets, err := h.iconService.List(r.Context())
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.IconSetsFromModel(sets))
}

// Random handles GET /api/icons/sets/random/{count}. An unparsable count
// falls back to the default; ?seed= makes the result reproducible.
func (h *IconHandler) Random(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(mux.Vars(r)["count"])
	if err != nil {
		count = iconset.DefaultRandomCount
	}

	rnd := h.random
	if raw := r.URL.Query().Get("seed"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(h.logger, w, r, apierr.NewInvalidRequestError("seed must be a non-negative integer"))
			return
		}
		rnd = random.NewSeeded(seed)
	}

	sets, err := h.iconService.Random(r.Context(), count, rnd)
	if err != nil {
		writeError(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.IconSetsFromModel(sets))
}
