package session

import (
	"github.com/SAP-F-2025/proctor-agent/internal/events"
	"github.com/SAP-F-2025/proctor-agent/internal/integrity"
	"github.com/SAP-F-2025/proctor-agent/internal/metrics"
	"github.com/SAP-F-2025/proctor-agent/internal/models"
)

// hooks binds integrity verdicts to the session a. Verdicts that arrive after
// a has ended are dropped.
func (c *Controller) hooks(a *activeSession) integrity.Hooks {
	return integrity.Hooks{
		OnCopyBlocked: func(v integrity.Verdict) {
			c.withActive(a, v, func() {
				c.noticeLocked(NoticeWarning, "copy_blocked", v.Message, false)
				c.emitLocked(events.EventIntegrityCopyBlocked, c.integrityEvent(a, v))
				c.auditLocked(a, models.EventCopyPaste, 2, map[string]interface{}{"prevented": true})
			})
		},
		OnViolation: func(v integrity.Verdict) {
			c.withActive(a, v, func() {
				c.logger.Warn("Full-screen exit",
					"assignment_id", a.assignment.ID,
					"exits", v.Exits,
					"remaining_exits", v.RemainingExits)
				c.noticeLocked(NoticeWarning, "fullscreen_exit", v.Message, false)
				c.emitLocked(events.EventIntegrityViolation, c.integrityEvent(a, v))
				c.auditLocked(a, models.EventFullscreenExit, 3, map[string]interface{}{
					"exits":           v.Exits,
					"remaining_exits": v.RemainingExits,
				})
			})
		},
		OnTerminate: func(v integrity.Verdict) {
			c.withActive(a, v, func() {
				if _, ok := c.state.(*inProgressState); !ok {
					return
				}
				c.emitLocked(events.EventIntegrityViolation, c.integrityEvent(a, v))
				c.auditLocked(a, models.EventFullscreenExit, 5, map[string]interface{}{"exits": v.Exits})
				c.terminateLocked(a, v.Exits)
			})
		},
		OnRestored: func(v integrity.Verdict) {
			c.withActive(a, v, func() {
				c.auditLocked(a, models.EventFullscreenEnter, 1, map[string]interface{}{"exits": v.Exits})
			})
		},
		OnRefused: func(v integrity.Verdict) {
			c.withActive(a, v, func() {
				c.logger.Warn("Full-screen refused by host", "assignment_id", a.assignment.ID)
				c.noticeLocked(NoticeWarning, "fullscreen_refused", v.Message, false)
				c.auditLocked(a, models.EventFullscreenRefused, 2, map[string]interface{}{})
			})
		},
	}
}

func (c *Controller) withActive(a *activeSession, v integrity.Verdict, fn func()) {
	c.mu.Lock()
	defer c.release(c.baseCtx)

	var cur *activeSession
	switch st := c.state.(type) {
	case *inProgressState:
		cur = st.activeSession
	case *submittingState:
		cur = st.activeSession
	}
	if cur != a {
		return
	}
	metrics.IntegritySignals.WithLabelValues(string(v.Kind)).Inc()
	fn()
}

func (c *Controller) integrityEvent(a *activeSession, v integrity.Verdict) events.IntegrityEvent {
	ev := events.IntegrityEvent{
		AssignmentID:   a.assignment.ID,
		Exits:          v.Exits,
		RemainingExits: v.RemainingExits,
		ElapsedSeconds: a.countdown.Elapsed(),
	}
	if q, _, ok := a.layout.At(a.index); ok {
		ev.QuestionID = ptr(q.ID)
	}
	return ev
}
