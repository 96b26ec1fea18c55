package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctor-agent/internal/metrics"
	"github.com/SAP-F-2025/proctor-agent/internal/repositories"
	"github.com/SAP-F-2025/proctor-agent/internal/utils"
	"github.com/SAP-F-2025/proctor-agent/internal/validator"
)

type HandlerManager struct {
	sessionHandler   *SessionHandler
	integrityHandler *IntegrityHandler
	auditHandler     *AuditHandler
	logger           utils.Logger
}

// Surface is what the HTTP layer needs from the host surface: a sink for
// signals and the pending full-screen flag.
type Surface interface {
	SignalSink
	FullscreenState
}

func NewHandlerManager(
	controller SessionController,
	surface Surface,
	auditRepo repositories.ProctoringEventRepository,
	validator *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler:   NewSessionHandler(controller, surface, validator, logger),
		integrityHandler: NewIntegrityHandler(surface, validator, logger),
		auditHandler:     NewAuditHandler(auditRepo, logger),
		logger:           logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.Use(
		utils.ContextLogger(hm.logger),
		utils.LoggerMiddleware(hm.logger),
		metrics.MetricsMiddleware(),
	)

	router.GET("/health", HealthCheck)
	router.GET("/metrics", metrics.PrometheusHandler())

	v1 := router.Group("/api/v1")
	{
		assignments := v1.Group("/assignments")
		{
			assignments.POST("/refresh", hm.sessionHandler.RefreshAssignments)
			assignments.POST("/:id/select", hm.sessionHandler.SelectAssignment)
			assignments.POST("/:id/redo", hm.sessionHandler.RequestRedo)
			assignments.GET("/:id/proctoring-events", hm.auditHandler.ListProctoringEvents)
		}

		sessions := v1.Group("/session")
		{
			sessions.GET("", hm.sessionHandler.GetSession)
			sessions.GET("/notices", hm.sessionHandler.DrainNotices)
			sessions.POST("/rules/accept", hm.sessionHandler.AcceptRules)
			sessions.POST("/start", hm.sessionHandler.Start)
			sessions.POST("/navigate", hm.sessionHandler.Navigate)
			sessions.PUT("/answers/:question_id", hm.sessionHandler.SelectAnswer)
			sessions.POST("/submit", hm.sessionHandler.Submit)
			sessions.POST("/leave", hm.sessionHandler.Leave)
			sessions.POST("/fullscreen/request", hm.sessionHandler.RequestFullscreen)
		}

		signals := v1.Group("/integrity")
		{
			signals.POST("/fullscreen", hm.integrityHandler.FullscreenChange)
			signals.POST("/fullscreen/ack", hm.integrityHandler.FullscreenAck)
			signals.POST("/copy", hm.integrityHandler.ClipboardCopy)
			signals.POST("/keydown", hm.integrityHandler.KeyDown)
		}
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "proctor-agent",
	})
}
