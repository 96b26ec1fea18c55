package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctor-agent/internal/integrity"
	"github.com/SAP-F-2025/proctor-agent/internal/utils"
	"github.com/SAP-F-2025/proctor-agent/internal/validator"
)

// SignalSink receives host signals reported by the exam UI.
type SignalSink interface {
	Dispatch(sig integrity.Signal) integrity.Verdict
	Acknowledge(ok bool) integrity.Verdict
}

type FullscreenSignalRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type KeyDownRequest struct {
	Key  string `json:"key" validate:"required,max=32"`
	Ctrl bool   `json:"ctrl"`
	Meta bool   `json:"meta"`
}

type FullscreenAckRequest struct {
	OK *bool `json:"ok" validate:"required"`
}

// IntegrityHandler forwards host signals to the integrity monitor and
// returns its verdict, which tells the UI whether to cancel the default
// action.
type IntegrityHandler struct {
	BaseHandler
	sink SignalSink
}

func NewIntegrityHandler(sink SignalSink, validator *validator.Validator, logger utils.Logger) *IntegrityHandler {
	return &IntegrityHandler{
		BaseHandler: NewBaseHandler(logger, validator),
		sink:        sink,
	}
}

func (h *IntegrityHandler) FullscreenChange(c *gin.Context) {
	var req FullscreenSignalRequest
	if !h.bind(c, &req) {
		return
	}
	h.respond(c, h.sink.Dispatch(integrity.Signal{
		Kind:   integrity.SignalFullscreenChange,
		Active: *req.Active,
	}))
}

func (h *IntegrityHandler) ClipboardCopy(c *gin.Context) {
	h.respond(c, h.sink.Dispatch(integrity.Signal{Kind: integrity.SignalClipboardCopy}))
}

func (h *IntegrityHandler) KeyDown(c *gin.Context) {
	var req KeyDownRequest
	if !h.bind(c, &req) {
		return
	}
	h.respond(c, h.sink.Dispatch(integrity.Signal{
		Kind: integrity.SignalKeyDown,
		Key:  req.Key,
		Ctrl: req.Ctrl,
		Meta: req.Meta,
	}))
}

// FullscreenAck records whether the UI managed to enter full-screen after a
// request.
func (h *IntegrityHandler) FullscreenAck(c *gin.Context) {
	var req FullscreenAckRequest
	if !h.bind(c, &req) {
		return
	}
	h.respond(c, h.sink.Acknowledge(*req.OK))
}

func (h *IntegrityHandler) respond(c *gin.Context, v integrity.Verdict) {
	if v.Kind != integrity.VerdictIgnored {
		h.LogInfo(c, "Integrity signal handled",
			"verdict", v.Kind,
			"exits", v.Exits,
			"remaining_exits", v.RemainingExits)
	}
	c.JSON(http.StatusOK, v)
}


