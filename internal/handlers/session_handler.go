package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctor-agent/internal/models"
	"github.com/SAP-F-2025/proctor-agent/internal/session"
	"github.com/SAP-F-2025/proctor-agent/internal/utils"
	"github.com/SAP-F-2025/proctor-agent/internal/validator"
)

// SessionController is the part of session.Controller driven over HTTP.
type SessionController interface {
	View() session.View
	DrainNotices() []session.Notice
	Refresh(ctx context.Context) ([]models.Assignment, error)
	SelectAssignment(ctx context.Context, assignmentID int) error
	AcceptRules() error
	Start(ctx context.Context) error
	Goto(i int) error
	Next() error
	Prev() error
	SelectAnswer(questionID int, labels []string) error
	Submit(ctx context.Context) error
	Leave(ctx context.Context) error
	RequestFullscreen(ctx context.Context) error
	RequestRedo(ctx context.Context, assignmentID int) error
}

// FullscreenState reports whether the exam UI should enter full-screen.
type FullscreenState interface {
	FullscreenRequested() bool
}

// ===== REQUEST STRUCTURES =====

// NavigateRequest moves to an absolute index or one step in a direction.
type NavigateRequest struct {
	Index     *int   `json:"index" validate:"omitempty,min=0"`
	Direction string `json:"direction" validate:"nav_direction"`
}

// AnswerRequest replaces the selection for one question. An empty list
// clears it.
type AnswerRequest struct {
	Labels []string `json:"labels" validate:"omitempty,max=26,dive,required,max=8"`
}

// SessionResponse is the view plus the pending full-screen request flag.
type SessionResponse struct {
	session.View
	FullscreenRequested bool `json:"fullscreen_requested"`
}

type SessionHandler struct {
	BaseHandler
	controller SessionController
	fullscreen FullscreenState
}

func NewSessionHandler(
	controller SessionController,
	fullscreen FullscreenState,
	validator *validator.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger, validator),
		controller:  controller,
		fullscreen:  fullscreen,
	}
}

// GetSession returns the current view snapshot
// @Summary Get session view
// @Tags session
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /session [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	h.respondWithView(c)
}

// DrainNotices returns and clears the pending notices
// @Summary Drain notices
// @Tags session
// @Produce json
// @Success 200 {array} session.Notice
// @Router /session/notices [get]
func (h *SessionHandler) DrainNotices(c *gin.Context) {
	notices := h.controller.DrainNotices()
	if notices == nil {
		notices = []session.Notice{}
	}
	c.JSON(http.StatusOK, notices)
}

// RefreshAssignments fetches the participant's assignments and enters listing
// @Summary Refresh assignments
// @Tags assignments
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 502 {object} ErrorResponse
// @Router /assignments/refresh [post]
func (h *SessionHandler) RefreshAssignments(c *gin.Context) {
	assignments, err := h.controller.Refresh(c.Request.Context())
	if err != nil {
		h.handleSessionError(c, err)
		return
	}
	h.LogInfo(c, "Assignments refreshed", "count", len(assignments))
	h.respondWithView(c)
}

// SelectAssignment opens the rules review for an assignment
// @Summary Select assignment
// @Tags assignments
// @Param id path int true "Assignment ID"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /assignments/{id}/select [post]
func (h *SessionHandler) SelectAssignment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.controller.SelectAssignment(c.Request.Context(), id); err != nil {
		h.handleSessionError(c, err)
		return
	}
	h.respondWithView(c)
}

// RequestRedo asks the backend to allow another attempt
// @Summary Request redo
// @Tags assignments
// @Param id path int true "Assignment ID"
// @Success 202 {object} SuccessResponse
// @Failure 502 {object} ErrorResponse
// @Router /assignments/{id}/redo [post]
func (h *SessionHandler) RequestRedo(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.controller.RequestRedo(c.Request.Context(), id); err != nil {
		h.handleSessionError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusAccepted, "Redo request submitted", gin.H{"assignment_id": id})
}

func (h *SessionHandler) AcceptRules(c *gin.Context) {
	if err := h.controller.AcceptRules(); err != nil {
		h.handleSessionError(c, err)
		return
	}
	h.respondWithView(c)
}

// Start begins the timed session
// @Summary Start session
// @Tags session
// @Success 200 {object} SessionResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /session/start [post]
func (h *SessionHandler) Start(c *gin.Context) {
	if err := h.controller.Start(c.Request.Context()); err != nil {
		h.handleSessionError(c, err)
		return
	}
	h.LogInfo(c, "Session started")
	h.respondWithView(c)
}

// Navigate moves between questions
// @Summary Navigate
// @Tags session
// @Accept json
// @Param request body NavigateRequest true "index or direction"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /session/navigate [post]
func (h *SessionHandler) Navigate(c *gin.Context) {
	var req NavigateRequest
	if !h.bind(c, &req) {
		return
	}
	if (req.Index == nil) == (req.Direction == "") {
		h.RespondWithError(c, http.StatusBadRequest, CodeInvalidRequest,
			"Exactly one of index or direction is required", nil)
		return
	}

	var err error
	switch {
	case req.Index != nil:
		err = h.controller.Goto(*req.Index)
	case req.Direction == "next":
		err = h.controller.Next()
	default:
		err = h.controller.Prev()
	}
	if err != nil {
		h.handleSessionError(c, err)
		return
	}
	h.respondWithView(c)
}

// SelectAnswer records the selected option labels for a question
// @Summary Select answer
// @Tags session
// @Accept json
// @Param question_id path int true "Question ID"
// @Param request body AnswerRequest true "Selected labels"
// @Success 200 {object} SessionResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /session/answers/{question_id} [put]
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	questionID, ok := parseIDParam(c, "question_id")
	if !ok {
		return
	}
	var req AnswerRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.controller.SelectAnswer(questionID, req.Labels); err != nil {
		h.handleSessionError(c, err)
		return
	}
	h.respondWithView(c)
}

// Submit hands the answers to the backend
// @Summary Submit session
// @Tags session
// @Success 200 {object} SessionResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /session/submit [post]
func (h *SessionHandler) Submit(c *gin.Context) {
	if err := h.controller.Submit(c.Request.Context()); err != nil {
		h.handleSessionError(c, err)
		return
	}
	h.respondWithView(c)
}

// Leave discards the current session and returns to the assignment list
func (h *SessionHandler) Leave(c *gin.Context) {
	if err := h.controller.Leave(c.Request.Context()); err != nil {
		h.handleSessionError(c, err)
		return
	}
	h.respondWithView(c)
}

// RequestFullscreen is the participant's manual full-screen affordance
func (h *SessionHandler) RequestFullscreen(c *gin.Context) {
	if err := h.controller.RequestFullscreen(c.Request.Context()); err != nil {
		h.handleSessionError(c, err)
		return
	}
	h.respondWithView(c)
}

func (h *SessionHandler) respondWithView(c *gin.Context) {
	resp := SessionResponse{View: h.controller.View()}
	if h.fullscreen != nil {
		resp.FullscreenRequested = h.fullscreen.FullscreenRequested()
	}
	c.JSON(http.StatusOK, resp)
}


