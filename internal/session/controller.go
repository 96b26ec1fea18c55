package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/proctor-agent/internal/answers"
	"github.com/SAP-F-2025/proctor-agent/internal/backend"
	"github.com/SAP-F-2025/proctor-agent/internal/clock"
	"github.com/SAP-F-2025/proctor-agent/internal/events"
	"github.com/SAP-F-2025/proctor-agent/internal/grouping"
	"github.com/SAP-F-2025/proctor-agent/internal/integrity"
	"github.com/SAP-F-2025/proctor-agent/internal/metrics"
	"github.com/SAP-F-2025/proctor-agent/internal/models"
	"github.com/SAP-F-2025/proctor-agent/internal/timer"
)

// QuestionCache is implemented by backends that cache question sets. A paper's
// cached sets are dropped after a submission or a redo request.
type QuestionCache interface {
	InvalidatePaper(ctx context.Context, paperID int) error
}

// Monitor enforces the integrity policy for the in-progress phase.
type Monitor interface {
	Start(ctx context.Context, hooks integrity.Hooks) error
	Stop()
	Suspend()
	Resume() integrity.Verdict
	RequestFullscreen(ctx context.Context) error
	Status() integrity.Status
}

// AuditRecorder persists proctoring events.
type AuditRecorder interface {
	Create(ctx context.Context, event *models.ProctoringEvent) error
}

type Config struct {
	ParticipantID      *int
	MaxExits           int
	TimeWarningSeconds int
	Grouping           grouping.Options
}

type Dependencies struct {
	Backend   backend.Backend
	Monitor   Monitor
	Clock     clock.Clock
	Publisher events.EventPublisher // optional
	Recorder  AuditRecorder         // optional
	Logger    *slog.Logger
}

// Controller owns the session state. All methods are safe for concurrent
// use; backend calls are made without holding the lock.
type Controller struct {
	backend   backend.Backend
	monitor   Monitor
	clk       clock.Clock
	publisher events.EventPublisher
	recorder  AuditRecorder
	cfg       Config
	logger    *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu          sync.Mutex
	state       state
	assignments []models.Assignment
	notices     []Notice
	outbox      []outboxItem
}

type outboxItem struct {
	event *events.SessionEvent
	audit *models.ProctoringEvent
}

func NewController(deps Dependencies, cfg Config) *Controller {
	if cfg.MaxExits <= 0 {
		cfg.MaxExits = integrity.DefaultMaxExits
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		backend:   deps.Backend,
		monitor:   deps.Monitor,
		clk:       clk,
		publisher: deps.Publisher,
		recorder:  deps.Recorder,
		cfg:       cfg,
		logger:    deps.Logger.With("component", "session_controller"),
		baseCtx:   ctx,
		cancel:    cancel,
		state:     &listingState{},
	}
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.phase()
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// DrainNotices returns the pending notices and forgets them.
func (c *Controller) DrainNotices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notices
	c.notices = nil
	return out
}

// Refresh fetches the participant's assignments. From a terminal phase it
// returns the session to listing.
func (c *Controller) Refresh(ctx context.Context) ([]models.Assignment, error) {
	c.mu.Lock()
	switch c.state.(type) {
	case *listingState, *completedState, *terminatedState:
	default:
		phase := c.state.phase()
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: refresh during %s", ErrInvalidPhase, phase)
	}
	c.mu.Unlock()

	list, err := c.backend.ListAssignments(ctx)

	c.mu.Lock()
	defer c.release(ctx)
	if err != nil {
		c.noticeLocked(NoticeError, "assignments_unavailable", "Could not load your assignments. Please try again.", false)
		c.logger.ErrorContext(ctx, "Failed to list assignments", "error", err)
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	c.assignments = list
	switch c.state.(type) {
	case *completedState, *terminatedState:
		c.setStateLocked(&listingState{})
	}
	return append([]models.Assignment(nil), list...), nil
}

// SelectAssignment picks an eligible assignment, loads its questions and
// enters rules review.
func (c *Controller) SelectAssignment(ctx context.Context, assignmentID int) error {
	c.mu.Lock()
	if _, ok := c.state.(*listingState); !ok {
		phase := c.state.phase()
		c.mu.Unlock()
		return fmt.Errorf("%w: select during %s", ErrInvalidPhase, phase)
	}
	assignment, ok := c.findAssignmentLocked(assignmentID)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrAssignmentNotFound, assignmentID)
	}
	if !assignment.Eligible() {
		c.mu.Unlock()
		return fmt.Errorf("%w: assignment %d is %s", ErrAssignmentNotEligible, assignmentID, assignment.Status)
	}
	review := &rulesReviewState{assignment: assignment}
	c.setStateLocked(review)
	c.mu.Unlock()

	questions, err := c.backend.FetchQuestions(ctx, assignment.PaperID, c.cfg.ParticipantID)

	c.mu.Lock()
	defer c.release(ctx)
	if c.state != review {
		return ErrSessionClosed
	}
	if err != nil {
		c.setStateLocked(&listingState{})
		c.noticeLocked(NoticeError, "questions_unavailable", "Could not load the questions for this paper. Please try again.", false)
		c.logger.ErrorContext(ctx, "Failed to fetch questions",
			"assignment_id", assignment.ID,
			"paper_id", assignment.PaperID,
			"error", err)
		return fmt.Errorf("fetch questions: %w", err)
	}

	review.layout = grouping.Build(questions, c.cfg.Grouping)
	c.logger.InfoContext(ctx, "Questions loaded",
		"assignment_id", assignment.ID,
		"questions", len(questions),
		"answerable", review.layout.Total())
	return nil
}

func (c *Controller) AcceptRules() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	review, ok := c.state.(*rulesReviewState)
	if !ok {
		return fmt.Errorf("%w: accept rules during %s", ErrInvalidPhase, c.state.phase())
	}
	if review.layout == nil {
		return ErrQuestionsNotLoaded
	}
	c.setStateLocked(&readyState{assignment: review.assignment, layout: review.layout})
	return nil
}

// Start calls the backend start operation and enters the in-progress phase.
// On failure the session stays ready to start.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	ready, ok := c.state.(*readyState)
	if !ok {
		phase := c.state.phase()
		c.mu.Unlock()
		return fmt.Errorf("%w: start during %s", ErrInvalidPhase, phase)
	}
	if ready.starting {
		c.mu.Unlock()
		return ErrStartInFlight
	}
	ready.starting = true
	assignmentID := ready.assignment.ID
	c.mu.Unlock()

	err := c.backend.StartSession(ctx, assignmentID)

	c.mu.Lock()
	defer c.release(ctx)
	if c.state != ready {
		return ErrSessionClosed
	}
	ready.starting = false
	if err != nil {
		c.noticeLocked(NoticeError, "start_failed", "The test could not be started. Please try again.", false)
		c.logger.ErrorContext(ctx, "Failed to start session", "assignment_id", assignmentID, "error", err)
		return fmt.Errorf("start session: %w", err)
	}

	tickCtx, stopTicks := context.WithCancel(c.baseCtx)
	a := &activeSession{
		assignment: ready.assignment,
		layout:     ready.layout,
		answers:    answers.NewStore(),
		countdown:  timer.New(ready.assignment.Duration),
		stopTicks:  stopTicks,
	}
	c.setStateLocked(&inProgressState{activeSession: a})

	fullscreenOK := true
	if err := c.monitor.Start(c.baseCtx, c.hooks(a)); err != nil {
		fullscreenOK = false
		c.noticeLocked(NoticeWarning, "fullscreen_unavailable",
			"Full-screen could not be entered. Use the full-screen button to continue in full-screen.", false)
	}
	go timer.Run(tickCtx, c.clk, func() { c.onTick(a) })

	metrics.RemainingSeconds.Set(float64(a.countdown.Remaining()))
	c.logger.InfoContext(ctx, "Session started",
		"assignment_id", a.assignment.ID,
		"duration_minutes", a.assignment.Duration,
		"answerable", a.layout.Total(),
		"fullscreen", fullscreenOK)
	c.emitLocked(events.EventSessionStarted, events.SessionStartedEvent{
		AssignmentID:    a.assignment.ID,
		PaperID:         a.assignment.PaperID,
		PaperName:       a.assignment.PaperName,
		ParticipantID:   c.cfg.ParticipantID,
		DurationMinutes: a.assignment.Duration,
		QuestionCount:   a.layout.Total(),
		FullscreenOK:    fullscreenOK,
	})
	return nil
}

// Goto moves to navigation index i.
func (c *Controller) Goto(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.state.(*inProgressState)
	if !ok {
		return fmt.Errorf("%w: navigate during %s", ErrInvalidPhase, c.state.phase())
	}
	if i < 0 || i >= st.layout.Total() {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, st.layout.Total())
	}
	st.index = i
	return nil
}

func (c *Controller) Next() error {
	return c.step(1)
}

func (c *Controller) Prev() error {
	return c.step(-1)
}

func (c *Controller) step(delta int) error {
	c.mu.Lock()
	st, ok := c.state.(*inProgressState)
	if !ok {
		phase := c.state.phase()
		c.mu.Unlock()
		return fmt.Errorf("%w: navigate during %s", ErrInvalidPhase, phase)
	}
	target := st.index + delta
	c.mu.Unlock()
	return c.Goto(target)
}

// SelectAnswer replaces the selection for an answerable question. An empty
// label list clears it.
func (c *Controller) SelectAnswer(questionID int, labels []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.state.(*inProgressState)
	if !ok {
		return fmt.Errorf("%w: answer during %s", ErrInvalidPhase, c.state.phase())
	}
	if st.countdown.Expired() {
		return ErrTimeExpired
	}
	q, ok := st.layout.Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrQuestionNotAnswerable, questionID)
	}
	return st.answers.Select(q, labels)
}

// Submit sends the current answers. A submit while another is in flight is a
// no-op.
func (c *Controller) Submit(ctx context.Context) error {
	return c.submit(ctx, TriggerManual)
}

func (c *Controller) submit(ctx context.Context, trigger Trigger) error {
	c.mu.Lock()
	var st *inProgressState
	switch cur := c.state.(type) {
	case *inProgressState:
		st = cur
	case *submittingState:
		c.mu.Unlock()
		return nil
	case *terminatedState:
		c.mu.Unlock()
		return ErrSessionTerminated
	default:
		phase := c.state.phase()
		c.mu.Unlock()
		return fmt.Errorf("%w: submit during %s", ErrInvalidPhase, phase)
	}

	a := st.activeSession
	snapshot := a.answers.Snapshot()
	sub := &submittingState{activeSession: a, trigger: trigger}
	c.setStateLocked(sub)
	c.monitor.Suspend()
	c.logger.InfoContext(ctx, "Submitting answers",
		"assignment_id", a.assignment.ID,
		"trigger", trigger,
		"answered", len(snapshot))
	c.release(ctx)

	err := c.backend.SubmitSession(ctx, a.assignment.ID, snapshot.Wire())
	if err == nil {
		c.invalidateQuestions(ctx, a.assignment.PaperID)
	}

	c.mu.Lock()
	defer c.release(ctx)
	if c.state != sub {
		return ErrSessionClosed
	}
	remaining := a.countdown.Remaining()

	if err != nil {
		metrics.Submissions.WithLabelValues(string(trigger), "error").Inc()
		c.logger.WarnContext(ctx, "Submission failed",
			"assignment_id", a.assignment.ID,
			"trigger", trigger,
			"remaining_seconds", remaining,
			"error", err)
		c.setStateLocked(&inProgressState{activeSession: a})
		c.emitLocked(events.EventSessionSubmitFailed, events.SessionSubmitFailedEvent{
			AssignmentID:     a.assignment.ID,
			Trigger:          string(trigger),
			Error:            err.Error(),
			RemainingSeconds: remaining,
		})
		c.noticeLocked(NoticeError, "submit_failed", submitFailedMessage(err, a.countdown.Expired()), false)
		switch v := c.monitor.Resume(); v.Kind {
		case integrity.VerdictTerminate:
			c.terminateLocked(a, v.Exits)
		case integrity.VerdictWarning:
			c.logger.WarnContext(ctx, "Full-screen left during submission",
				"assignment_id", a.assignment.ID,
				"exits", v.Exits)
			c.noticeLocked(NoticeWarning, "fullscreen_exit", v.Message, false)
			c.emitLocked(events.EventIntegrityViolation, c.integrityEvent(a, v))
			c.auditLocked(a, models.EventFullscreenExit, 3, map[string]interface{}{
				"exits":             v.Exits,
				"remaining_exits":   v.RemainingExits,
				"during_submission": true,
			})
		}
		return fmt.Errorf("submit session: %w", err)
	}

	metrics.Submissions.WithLabelValues(string(trigger), "ok").Inc()
	c.teardownLocked(a)
	c.setStateLocked(&completedState{
		assignment: a.assignment,
		answered:   len(snapshot),
		total:      a.layout.Total(),
		trigger:    trigger,
	})
	c.noticeLocked(NoticeInfo, "submitted", "Your answers have been submitted.", false)
	c.logger.InfoContext(ctx, "Session submitted", "assignment_id", a.assignment.ID, "trigger", trigger)
	c.emitLocked(events.EventSessionSubmitted, events.SessionSubmittedEvent{
		AssignmentID:     a.assignment.ID,
		PaperID:          a.assignment.PaperID,
		ParticipantID:    c.cfg.ParticipantID,
		Trigger:          string(trigger),
		AnsweredCount:    len(snapshot),
		QuestionCount:    a.layout.Total(),
		RemainingSeconds: remaining,
	})
	return nil
}

// Leave abandons the session from any phase except submitting and returns
// to listing. Nothing is submitted. The assignment list is refreshed on a
// best-effort basis.
func (c *Controller) Leave(ctx context.Context) error {
	c.mu.Lock()
	switch st := c.state.(type) {
	case *submittingState:
		c.mu.Unlock()
		return fmt.Errorf("%w: leave during submission", ErrInvalidPhase)
	case *inProgressState:
		c.teardownLocked(st.activeSession)
		c.logger.InfoContext(ctx, "Session abandoned",
			"assignment_id", st.assignment.ID,
			"elapsed_seconds", st.countdown.Elapsed())
	}
	c.setStateLocked(&listingState{})
	c.release(ctx)

	if _, err := c.Refresh(ctx); err != nil {
		c.logger.WarnContext(ctx, "Assignment refresh after leave failed", "error", err)
	}
	return nil
}

// RequestFullscreen asks the host to re-enter full-screen.
func (c *Controller) RequestFullscreen(ctx context.Context) error {
	c.mu.Lock()
	defer c.release(ctx)

	if _, ok := c.state.(*inProgressState); !ok {
		return fmt.Errorf("%w: full-screen request during %s", ErrInvalidPhase, c.state.phase())
	}
	if err := c.monitor.RequestFullscreen(ctx); err != nil {
		c.noticeLocked(NoticeWarning, "fullscreen_unavailable",
			"Full-screen could not be entered. Please try again.", false)
	}
	return nil
}

// RequestRedo asks an administrator to allow the assignment to be taken
// again. It does not affect the session.
func (c *Controller) RequestRedo(ctx context.Context, assignmentID int) error {
	c.mu.Lock()
	assignment, known := c.findAssignmentLocked(assignmentID)
	c.mu.Unlock()

	err := c.backend.RequestRedo(ctx, assignmentID)
	if err == nil && known {
		c.invalidateQuestions(ctx, assignment.PaperID)
	}

	c.mu.Lock()
	defer c.release(ctx)
	if err != nil {
		c.noticeLocked(NoticeError, "redo_failed", fmt.Sprintf("Redo request failed: %v", err), false)
		c.logger.WarnContext(ctx, "Redo request failed", "assignment_id", assignmentID, "error", err)
		return fmt.Errorf("request redo: %w", err)
	}
	c.noticeLocked(NoticeInfo, "redo_requested", "Your redo request has been sent. Please wait for approval.", false)
	c.emitLocked(events.EventRedoRequested, events.RedoRequestedEvent{
		AssignmentID:  assignmentID,
		ParticipantID: c.cfg.ParticipantID,
	})
	return nil
}

// Close tears down any active session. Further ticks and integrity signals
// are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	switch st := c.state.(type) {
	case *inProgressState:
		c.teardownLocked(st.activeSession)
	case *submittingState:
		c.teardownLocked(st.activeSession)
	}
	c.setStateLocked(&listingState{})
	c.mu.Unlock()
	c.cancel()
}

func (c *Controller) onTick(a *activeSession) {
	c.mu.Lock()
	st, ok := c.state.(*inProgressState)
	if !ok || st.activeSession != a {
		c.mu.Unlock()
		return
	}

	expired := a.countdown.Tick()
	remaining := a.countdown.Remaining()
	metrics.RemainingSeconds.Set(float64(remaining))

	if !a.warned && remaining > 0 && c.timeLow(a.countdown.Total(), remaining) {
		a.warned = true
		c.noticeLocked(NoticeWarning, "time_low",
			fmt.Sprintf("%s left. Answers are submitted automatically when time runs out.", timer.Split(remaining)), false)
		c.emitLocked(events.EventSessionTimeWarning, events.SessionTimeWarningEvent{
			AssignmentID:     a.assignment.ID,
			RemainingSeconds: remaining,
		})
	}
	c.release(c.baseCtx)

	if expired {
		c.logger.Info("Time is up, submitting automatically", "assignment_id", a.assignment.ID)
		if err := c.submit(c.baseCtx, TriggerTimeout); err != nil {
			c.logger.Error("Automatic submission failed", "assignment_id", a.assignment.ID, "error", err)
		}
	}
}

// invalidateQuestions drops the cached question set of a paper. It is called
// without the lock held.
func (c *Controller) invalidateQuestions(ctx context.Context, paperID int) {
	qc, ok := c.backend.(QuestionCache)
	if !ok {
		return
	}
	if err := qc.InvalidatePaper(ctx, paperID); err != nil {
		c.logger.WarnContext(ctx, "Failed to invalidate cached questions", "paper_id", paperID, "error", err)
	}
}

func submitFailedMessage(err error, expired bool) string {
	var be *backend.Error
	switch {
	case expired:
		return "Time is up but the submission failed. Answers can no longer be changed; please submit again."
	case errors.As(err, &be) && !be.Retryable():
		return "The submission was rejected. Your answers are kept; please contact your administrator if submitting again fails."
	default:
		return "Submission failed. Your answers are kept; please submit again."
	}
}

func (c *Controller) terminateLocked(a *activeSession, exits int) {
	c.teardownLocked(a)
	reason := fmt.Sprintf("Full-screen was exited %d times.", exits)
	c.setStateLocked(&terminatedState{assignment: a.assignment, reason: reason, exits: exits})
	c.noticeLocked(NoticeError, "session_terminated",
		fmt.Sprintf("You left full-screen %d times. The test has been terminated and no answers were submitted.", exits), true)
	c.logger.Warn("Session terminated",
		"assignment_id", a.assignment.ID,
		"exits", exits,
		"elapsed_seconds", a.countdown.Elapsed())
	c.emitLocked(events.EventSessionTerminated, events.SessionTerminatedEvent{
		AssignmentID:   a.assignment.ID,
		PaperID:        a.assignment.PaperID,
		ParticipantID:  c.cfg.ParticipantID,
		Reason:         reason,
		FullscreenExit: exits,
		ElapsedSeconds: a.countdown.Elapsed(),
	})
	c.auditLocked(a, models.EventSessionTerminated, 5, map[string]interface{}{"exits": exits, "reason": reason})
}

// teardownLocked stops the tick source and the integrity monitor.
func (c *Controller) teardownLocked(a *activeSession) {
	a.stopTicks()
	c.monitor.Stop()
	metrics.RemainingSeconds.Set(0)
}

func (c *Controller) setStateLocked(s state) {
	from := c.state.phase()
	to := s.phase()
	c.state = s
	if from != to {
		metrics.PhaseTransitions.WithLabelValues(string(from), string(to)).Inc()
		c.logger.Debug("Session phase changed", "from", from, "to", to)
	}
}

func (c *Controller) findAssignmentLocked(id int) (models.Assignment, bool) {
	for _, a := range c.assignments {
		if a.ID == id {
			return a, true
		}
	}
	return models.Assignment{}, false
}

func (c *Controller) noticeLocked(level NoticeLevel, code, message string, blocking bool) {
	c.notices = append(c.notices, Notice{
		Level:    level,
		Code:     code,
		Message:  message,
		Blocking: blocking,
		At:       c.clk.Now(),
	})
}

func (c *Controller) emitLocked(eventType events.EventType, data interface{}) {
	c.outbox = append(c.outbox, outboxItem{event: events.NewSessionEvent(eventType, data, c.clk.Now())})
}

func (c *Controller) auditLocked(a *activeSession, eventType models.ProctoringEventType, severity int, data map[string]interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		c.logger.Error("Failed to encode audit payload", "type", eventType, "error", err)
		payload = []byte("{}")
	}
	ev := &models.ProctoringEvent{
		AssignmentID:  a.assignment.ID,
		PaperID:       a.assignment.PaperID,
		ParticipantID: c.cfg.ParticipantID,
		Type:          eventType,
		Data:          datatypes.JSON(payload),
		Severity:      severity,
		TimeOffset:    a.countdown.Elapsed(),
		CreatedAt:     c.clk.Now(),
	}
	if q, _, ok := a.layout.At(a.index); ok {
		ev.QuestionID = ptr(q.ID)
	}
	c.outbox = append(c.outbox, outboxItem{audit: ev})
}

// release unlocks the controller and then delivers the queued events and
// audit records, in order, outside the lock.
func (c *Controller) release(ctx context.Context) {
	items := c.outbox
	c.outbox = nil
	c.mu.Unlock()

	if len(items) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, item := range items {
		if item.event != nil && c.publisher != nil {
			if err := c.publisher.PublishSessionEvent(ctx, item.event); err != nil {
				c.logger.Error("Failed to publish session event", "event_type", item.event.Type, "error", err)
			}
		}
		if item.audit != nil && c.recorder != nil {
			if err := c.recorder.Create(ctx, item.audit); err != nil {
				c.logger.Error("Failed to record proctoring event", "type", item.audit.Type, "error", err)
			}
		}
	}
}
