package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/civicgrid/civic-issues-backend/internal/adapters/primary/http/middleware"
	"github.com/civicgrid/civic-issues-backend/internal/adapters/primary/validation"
	"github.com/civicgrid/civic-issues-backend/internal/auth"
	"github.com/civicgrid/civic-issues-backend/internal/core/analytics"
	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

const maxHotspotRadiusKm = 50

// AnalyticsHandler exposes the admin-only analytics surface.
type AnalyticsHandler struct {
	analyticsService ports.AnalyticsService
	defaultRadiusKm  float64
	errorHandler     *ErrorHandler
	logger           *slog.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(
	analyticsService ports.AnalyticsService,
	defaultRadiusKm float64,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AnalyticsHandler {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = analytics.DefaultHotspotRadiusKm
	}
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		defaultRadiusKm:  defaultRadiusKm,
		errorHandler:     errorHandler,
		logger:           logger.With("handler", "analytics"),
	}
}

// RegisterRoutes sets up the routing for all analytics endpoints.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/wards/{ward}", h.HandleWardAnalytics)
	r.Get("/hotspots", h.HandleHotspots)
	r.Get("/impact-report", h.HandleImpactReport)
}

// HandleWardAnalytics handles GET /analytics/wards/{ward}
func (h *AnalyticsHandler) HandleWardAnalytics(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ward := chi.URLParam(r, "ward")

	report, err := h.analyticsService.WardAnalytics(r.Context(), claims.UserID, ward)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// HandleHotspots handles GET /analytics/hotspots
func (h *AnalyticsHandler) HandleHotspots(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	radiusKm := validation.ParseFloatQueryParam(r, "radiusKm", h.defaultRadiusKm)

	v := validation.NewValidator()
	v.Custom("radiusKm", radiusKm > 0 && radiusKm <= maxHotspotRadiusKm,
		"Must be a positive number of kilometers")
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	hotspots, err := h.analyticsService.Hotspots(r.Context(), claims.UserID, radiusKm)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if hotspots == nil {
		hotspots = []domain.IssueHotspot{}
	}

	WriteList(w, hotspots)
}

// HandleImpactReport handles GET /analytics/impact-report. Wards come
// from repeated ward query params; start/end bound the creation window
// and default to everything when omitted.
func (h *AnalyticsHandler) HandleImpactReport(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	wards := r.URL.Query()["ward"]

	rng, err := parseDateRange(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	report, err := h.analyticsService.ImpactReport(r.Context(), claims.UserID, wards, rng)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// parseDateRange reads optional start/end query params (RFC3339 or
// YYYY-MM-DD). Both must be present to form a range.
func parseDateRange(r *http.Request) (*domain.DateRange, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" && endStr == "" {
		return nil, nil
	}

	v := validation.NewValidator()

	start, startOK := parseTimestamp(startStr)
	if startStr == "" || !startOK {
		v.Custom("start", false, "Must be a valid date or timestamp")
	}

	end, endOK := parseTimestamp(endStr)
	if endStr == "" || !endOK {
		v.Custom("end", false, "Must be a valid date or timestamp")
	}

	if startOK && endOK && start.After(end) {
		v.Custom("start", false, "Must be before end")
	}

	if v.HasErrors() {
		return nil, v.Errors()
	}

	return &domain.DateRange{Start: start, End: end}, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// getClaims extracts and validates user claims from the request context
func (h *AnalyticsHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}
