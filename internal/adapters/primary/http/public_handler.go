package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

// PublicHandler serves the unauthenticated, anonymized stats surface.
type PublicHandler struct {
	analyticsService ports.AnalyticsService
	errorHandler     *ErrorHandler
	logger           *slog.Logger
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(
	analyticsService ports.AnalyticsService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *PublicHandler {
	return &PublicHandler{
		analyticsService: analyticsService,
		errorHandler:     errorHandler,
		logger:           logger.With("handler", "public"),
	}
}

// RegisterRoutes sets up the routing for public endpoints.
func (h *PublicHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.HandlePublicStats)
}

// HandlePublicStats handles GET /public/stats
func (h *PublicHandler) HandlePublicStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analyticsService.PublicStats(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
