package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctor-agent/internal/models"
	"github.com/SAP-F-2025/proctor-agent/internal/repositories"
	"github.com/SAP-F-2025/proctor-agent/internal/utils"
)

const (
	maxAuditPageSize     = 100
	defaultAuditPageSize = 20
)

// ProctoringEventsResponse is one page of an assignment's audit trail.
type ProctoringEventsResponse struct {
	Events []*models.ProctoringEvent             `json:"events"`
	Total  int64                                 `json:"total"`
	Page   int                                   `json:"page"`
	Size   int                                   `json:"size"`
	Counts map[models.ProctoringEventType]int64 `json:"counts"`
}

// AuditHandler serves the proctoring audit trail recorded for assignments.
// The repository is nil when no database is configured.
type AuditHandler struct {
	BaseHandler
	repo repositories.ProctoringEventRepository
}

func NewAuditHandler(repo repositories.ProctoringEventRepository, logger utils.Logger) *AuditHandler {
	return &AuditHandler{
		BaseHandler: NewBaseHandler(logger, nil),
		repo:        repo,
	}
}

// ListProctoringEvents lists recorded integrity events for an assignment
// @Summary List proctoring events
// @Tags audit
// @Produce json
// @Param id path int true "Assignment ID"
// @Param type query string false "Event type"
// @Param min_severity query int false "Minimum severity"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} ProctoringEventsResponse
// @Failure 503 {object} ErrorResponse
// @Router /assignments/{id}/proctoring-events [get]
func (h *AuditHandler) ListProctoringEvents(c *gin.Context) {
	if h.repo == nil {
		h.RespondWithError(c, http.StatusServiceUnavailable, CodeAuditDisabled, "Audit storage is not configured", nil)
		return
	}
	assignmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	page := parseIntQuery(c, "page", 1)
	size := parseIntQuery(c, "size", defaultAuditPageSize)
	if page < 1 {
		page = 1
	}
	switch {
	case size < 1:
		size = defaultAuditPageSize
	case size > maxAuditPageSize:
		size = maxAuditPageSize
	}

	filters := repositories.ProctoringEventFilters{
		MinLevel: parseIntQuery(c, "min_severity", 0),
		Limit:    size,
		Offset:   (page - 1) * size,
	}
	if eventType := c.Query("type"); eventType != "" {
		t := models.ProctoringEventType(eventType)
		filters.Type = &t
	}

	ctx := c.Request.Context()
	events, total, err := h.repo.ListByAssignment(ctx, assignmentID, filters)
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, CodeInternal, "Failed to list proctoring events", err)
		return
	}
	counts, err := h.repo.CountByType(ctx, assignmentID)
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, CodeInternal, "Failed to count proctoring events", err)
		return
	}

	c.JSON(http.StatusOK, ProctoringEventsResponse{
		Events: events,
		Total:  total,
		Page:   page,
		Size:   size,
		Counts: counts,
	})
}
