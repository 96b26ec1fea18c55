package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctor-agent/internal/backend"
	apperrors "github.com/SAP-F-2025/proctor-agent/internal/errors"
	"github.com/SAP-F-2025/proctor-agent/internal/session"
	"github.com/SAP-F-2025/proctor-agent/internal/utils"
	"github.com/SAP-F-2025/proctor-agent/internal/validator"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	CodeInvalidPhase    = "invalid_phase"
	CodeNotFound        = "not_found"
	CodeValidation      = "validation_failed"
	CodeBackend         = "backend_unavailable"
	CodeInvalidRequest  = "invalid_request"
	CodeInternal        = "internal_error"
	CodeAuditDisabled   = "audit_disabled"
	CodeSessionFinished = "session_terminated"
)

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides request-scoped logging and error responses
type BaseHandler struct {
	logger    utils.Logger
	validator *validator.Validator
}

func NewBaseHandler(logger utils.Logger, validator *validator.Validator) BaseHandler {
	return BaseHandler{logger: logger, validator: validator}
}

// bind decodes and validates the JSON body, writing the error response
// itself on failure.
func (h *BaseHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, CodeInvalidRequest, "Invalid request payload", err, err.Error())
		return false
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.RespondWithError(c, http.StatusUnprocessableEntity, CodeValidation, "Validation failed", err,
			apperrors.ToValidationErrors(err))
		return false
	}
	return true
}

// log returns the request logger installed by utils.ContextLogger, falling
// back to the handler's own.
func (h *BaseHandler) log(c *gin.Context) utils.Logger {
	if _, ok := c.Get("logger"); ok {
		return utils.GetLoggerFromContext(c)
	}
	return h.logger
}

func (h *BaseHandler) LogInfo(c *gin.Context, message string, fields ...interface{}) {
	h.log(c).Info(message, fields...)
}

func (h *BaseHandler) LogWarn(c *gin.Context, message string, fields ...interface{}) {
	h.log(c).Warn(message, fields...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, message string, fields ...interface{}) {
	h.log(c).LogError(err, message, fields...)
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, code, message string, err error, details ...interface{}) {
	resp := ErrorResponse{Message: message, Code: code}
	if len(details) > 0 {
		resp.Details = details[0]
	}

	if statusCode >= http.StatusInternalServerError && err != nil {
		h.LogError(c, err, message, "status_code", statusCode)
	} else {
		h.LogWarn(c, message, "status_code", statusCode, "code", code)
	}

	c.AbortWithStatusJSON(statusCode, resp)
}

// RespondWithSuccess sends a consistent success response
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, SuccessResponse{Message: message, Data: data})
}

// handleSessionError maps controller and backend errors onto HTTP statuses.
func (h *BaseHandler) handleSessionError(c *gin.Context, err error) {
	var validationErrors apperrors.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusUnprocessableEntity, CodeValidation, "Validation failed", err, validationErrors)
		return
	}

	var backendErr *backend.Error
	if errors.As(err, &backendErr) {
		h.RespondWithError(c, http.StatusBadGateway, CodeBackend, "Assessment backend request failed", err, gin.H{
			"operation":   backendErr.Op,
			"status_code": backendErr.StatusCode,
			"detail":      backendErr.Detail,
			"retryable":   backendErr.Retryable(),
		})
		return
	}

	switch {
	case errors.Is(err, session.ErrSessionTerminated):
		h.RespondWithError(c, http.StatusConflict, CodeSessionFinished, err.Error(), err)
	case session.IsPhaseError(err):
		h.RespondWithError(c, http.StatusConflict, CodeInvalidPhase, err.Error(), err)
	case errors.Is(err, session.ErrAssignmentNotFound):
		h.RespondWithError(c, http.StatusNotFound, CodeNotFound, err.Error(), err)
	case session.IsValidationError(err):
		h.RespondWithError(c, http.StatusUnprocessableEntity, CodeValidation, err.Error(), err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, CodeInternal, "Internal server error", err)
	}
}
