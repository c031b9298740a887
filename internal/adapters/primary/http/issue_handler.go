package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/civicgrid/civic-issues-backend/internal/adapters/primary/http/middleware"
	"github.com/civicgrid/civic-issues-backend/internal/adapters/primary/validation"
	"github.com/civicgrid/civic-issues-backend/internal/auth"
	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

const maxIssuesPerPage = 100

// IssueHandler handles HTTP requests for civic issues
type IssueHandler struct {
	issueService ports.IssueService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewIssueHandler creates a new issue handler
func NewIssueHandler(
	issueService ports.IssueService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *IssueHandler {
	return &IssueHandler{
		issueService: issueService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "issue"),
	}
}

// Router sets up a new chi Router for all issue-related routes.
func (h *IssueHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all issue endpoints.
func (h *IssueHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListIssues)
	r.Post("/", h.HandleCreateIssue)

	// Routes for a specific issue
	r.Route("/{issueID}", func(r chi.Router) {
		r.Get("/", h.HandleGetIssue)
		r.Patch("/status", h.HandleUpdateIssueStatus)
		r.Patch("/assignee", h.HandleAssignIssue)
		r.Post("/upvote", h.HandleUpvoteIssue)
	})
}

// --- Request/Response DTOs ---

// CreateIssueRequest defines the expected JSON body for reporting an issue
type CreateIssueRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	Priority    string             `json:"priority"`
	Coordinates domain.Coordinates `json:"coordinates"`
	Location    string             `json:"location"`
	Ward        string             `json:"ward"`
}

// Validate validates the create issue request. Category is optional: a
// blank category is filled in by the categorizer downstream.
func (r *CreateIssueRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("title", r.Title).
		MaxLength("title", r.Title, 255)

	v.MaxLength("description", r.Description, 5000)

	if r.Category != "" {
		v.Custom("category", domain.IsValidCategory(r.Category), "Unknown issue category")
	}

	v.OneOf("priority", r.Priority, []string{"low", "medium", "high", "critical"})

	v.Latitude("coordinates.lat", r.Coordinates.Lat)
	v.Longitude("coordinates.lng", r.Coordinates.Lng)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateStatusRequest defines the expected JSON body for status updates
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Validate validates the update status request
func (r *UpdateStatusRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("status", r.Status).
		OneOf("status", r.Status, []string{"open", "in-progress", "resolved", "closed"})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// AssignIssueRequest defines the expected JSON body for assigning an issue
type AssignIssueRequest struct {
	AssigneeID string `json:"assigneeId"`
}

// Validate validates the assign issue request
func (r *AssignIssueRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("assigneeId", r.AssigneeID).
		UUID("assigneeId", r.AssigneeID)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// IssueDTO defines the JSON response for issues.
type IssueDTO struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    string             `json:"category"`
	Status      string             `json:"status"`
	Priority    string             `json:"priority"`
	Coordinates domain.Coordinates `json:"coordinates"`
	Location    string             `json:"location"`
	Ward        string             `json:"ward"`
	ReporterID  string             `json:"reporterId"`
	AssigneeID  *string            `json:"assigneeId"`
	Upvotes     int                `json:"upvotes"`
	CreatedAt   string             `json:"createdAt"`
	UpdatedAt   *string            `json:"updatedAt"`
	ResolvedAt  *string            `json:"resolvedAt"`
}

func toIssueDTO(issue *domain.Issue) IssueDTO {
	var assigneeID *string
	if issue.AssigneeID != nil {
		value := issue.AssigneeID.String()
		assigneeID = &value
	}

	var updatedAt *string
	if issue.UpdatedAt != nil {
		value := issue.UpdatedAt.Format(time.RFC3339)
		updatedAt = &value
	}

	var resolvedAt *string
	if issue.ResolvedAt != nil {
		value := issue.ResolvedAt.Format(time.RFC3339)
		resolvedAt = &value
	}

	return IssueDTO{
		ID:          issue.ID.String(),
		Title:       issue.Title,
		Description: issue.Description,
		Category:    string(issue.Category),
		Status:      string(issue.Status),
		Priority:    string(issue.Priority),
		Coordinates: issue.Coordinates,
		Location:    issue.Location,
		Ward:        issue.Ward,
		ReporterID:  issue.ReporterID.String(),
		AssigneeID:  assigneeID,
		Upvotes:     issue.Upvotes,
		CreatedAt:   issue.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   updatedAt,
		ResolvedAt:  resolvedAt,
	}
}

func toIssueDTOs(issues []*domain.Issue) []IssueDTO {
	response := make([]IssueDTO, 0, len(issues))
	for _, issue := range issues {
		response = append(response, toIssueDTO(issue))
	}
	return response
}

// --- Handlers ---

// HandleListIssues handles GET /issues
func (h *IssueHandler) HandleListIssues(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	// Parse pagination
	pagination := validation.ParsePagination(r, maxIssuesPerPage)

	// Parse optional filters
	status := validation.ParseStringQueryParam(r, "status")
	category := validation.ParseStringQueryParam(r, "category")
	ward := validation.ParseStringQueryParam(r, "ward")

	v := validation.NewValidator()
	if status != nil {
		v.OneOf("status", *status, []string{"open", "in-progress", "resolved", "closed"})
	}
	if category != nil {
		v.Custom("category", domain.IsValidCategory(*category), "Unknown issue category")
	}
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	params := ports.ListIssuesParams{
		ViewerID: claims.UserID,
		Limit:    pagination.Limit,
		Offset:   pagination.Offset,
		Status:   status,
		Category: category,
		Ward:     ward,
	}

	issues, err := h.issueService.ListIssues(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	// Use simple pagination (without total count for performance)
	WritePaginatedSimple(w, toIssueDTOs(issues), pagination.Limit, pagination.Offset)
}

// HandleCreateIssue handles POST /issues
func (h *IssueHandler) HandleCreateIssue(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateIssueRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.CreateIssueParams{
		Title:       req.Title,
		Description: req.Description,
		Category:    domain.IssueCategory(req.Category),
		Priority:    domain.IssuePriority(req.Priority),
		Coordinates: req.Coordinates,
		Location:    req.Location,
		Ward:        req.Ward,
		ReporterID:  claims.UserID,
	}

	issue, err := h.issueService.CreateIssue(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("issue created",
		"issue_id", issue.ID,
		"category", issue.Category,
		"ward", issue.Ward,
		"user_id", claims.UserID,
	)

	WriteCreated(w, toIssueDTO(issue))
}

// HandleGetIssue handles GET /issues/{issueID}
func (h *IssueHandler) HandleGetIssue(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	issueID, err := h.parseIssueID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	issue, err := h.issueService.GetIssue(r.Context(), issueID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toIssueDTO(issue))
}

// HandleUpdateIssueStatus handles PATCH /issues/{issueID}/status
func (h *IssueHandler) HandleUpdateIssueStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	issueID, err := h.parseIssueID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateStatusRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.UpdateStatusParams{
		IssueID: issueID,
		Status:  domain.IssueStatus(req.Status),
		ActorID: claims.UserID,
	}

	issue, err := h.issueService.UpdateStatus(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("issue status updated",
		"issue_id", issueID,
		"new_status", req.Status,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toIssueDTO(issue))
}

// HandleAssignIssue handles PATCH /issues/{issueID}/assignee
func (h *IssueHandler) HandleAssignIssue(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	issueID, err := h.parseIssueID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[AssignIssueRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	assigneeID, err := uuid.Parse(req.AssigneeID)
	if err != nil {
		// This shouldn't happen since we validated the UUID format
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.AssignIssueParams{
		IssueID:    issueID,
		AssigneeID: assigneeID,
		ActorID:    claims.UserID,
	}

	issue, err := h.issueService.AssignIssue(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("issue assigned",
		"issue_id", issueID,
		"assignee_id", assigneeID,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toIssueDTO(issue))
}

// HandleUpvoteIssue handles POST /issues/{issueID}/upvote
func (h *IssueHandler) HandleUpvoteIssue(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	issueID, err := h.parseIssueID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	issue, err := h.issueService.UpvoteIssue(r.Context(), issueID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toIssueDTO(issue))
}

// --- Helper methods ---

// getClaims extracts and validates user claims from the request context
func (h *IssueHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
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

// parseIssueID extracts and validates the issue ID from the URL
func (h *IssueHandler) parseIssueID(r *http.Request) (uuid.UUID, error) {
	issueIDStr := chi.URLParam(r, "issueID")
	issueID, err := uuid.Parse(issueIDStr)
	if err != nil {
		v := validation.NewValidator()
		v.Custom("issueID", false, "Invalid issue ID")
		return uuid.Nil, v.Errors()
	}
	return issueID, nil
}
