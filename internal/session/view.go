package session

import (
	"fmt"
	"time"

	"github.com/SAP-F-2025/proctor-agent/internal/integrity"
	"github.com/SAP-F-2025/proctor-agent/internal/models"
	"github.com/SAP-F-2025/proctor-agent/internal/timer"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a message for the participant. Blocking notices must be
// acknowledged before the UI moves on.
type Notice struct {
	Level    NoticeLevel `json:"level"`
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Blocking bool        `json:"blocking"`
	At       time.Time   `json:"at"`
}

// View is a snapshot of the session for the exam UI. Only the sections that
// belong to the current phase are set.
type View struct {
	Phase       Phase               `json:"phase"`
	Assignments []models.Assignment `json:"assignments,omitempty"`
	Assignment  *models.Assignment  `json:"assignment,omitempty"`

	Rules         []string `json:"rules,omitempty"`
	Loading       bool     `json:"loading,omitempty"`
	Starting      bool     `json:"starting,omitempty"`
	QuestionCount int      `json:"question_count,omitempty"`

	Question  *QuestionView     `json:"question,omitempty"`
	Progress  *ProgressView     `json:"progress,omitempty"`
	Timer     *TimerView        `json:"timer,omitempty"`
	Integrity *integrity.Status `json:"integrity,omitempty"`

	Result *ResultView `json:"result,omitempty"`
}

type QuestionView struct {
	Index      int              `json:"index"`
	Total      int              `json:"total"`
	IsFirst    bool             `json:"is_first"`
	IsLast     bool             `json:"is_last"`
	Question   *models.Question `json:"question"`
	Background *models.Question `json:"background,omitempty"`
	Selected   []string         `json:"selected"`
}

type ProgressView struct {
	Answered int     `json:"answered"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
	// Markers[i] reports whether the question at navigation index i is answered.
	Markers []bool `json:"markers"`
}

type TimerView struct {
	RemainingSeconds int           `json:"remaining_seconds"`
	Clock            timer.Display `json:"clock"`
	Display          string        `json:"display"`
	TimeLow          bool          `json:"time_low"`
}

type ResultView struct {
	Answered int     `json:"answered,omitempty"`
	Total    int     `json:"total,omitempty"`
	Trigger  Trigger `json:"trigger,omitempty"`
	Reason   string  `json:"reason,omitempty"`
	Exits    int     `json:"exits,omitempty"`
}

// Rules is the rule list shown during rules review.
func Rules(a models.Assignment, maxExits int) []string {
	return []string{
		"The test runs in full-screen mode. Do not leave full-screen while answering.",
		fmt.Sprintf("Leaving full-screen %d times terminates the test without submitting your answers.", maxExits),
		"Copying question content is not allowed.",
		"Do not refresh or close the page during the test.",
		fmt.Sprintf("You have %d minutes. Answers are submitted automatically when time runs out.", a.Duration),
		"Answers cannot be changed after submission.",
	}
}

func (c *Controller) viewLocked() View {
	v := View{Phase: c.state.phase()}

	switch st := c.state.(type) {
	case *listingState:
		v.Assignments = append([]models.Assignment(nil), c.assignments...)
	case *rulesReviewState:
		v.Assignment = ptr(st.assignment)
		v.Rules = Rules(st.assignment, c.cfg.MaxExits)
		v.Loading = st.layout == nil
		if st.layout != nil {
			v.QuestionCount = st.layout.Total()
		}
	case *readyState:
		v.Assignment = ptr(st.assignment)
		v.Starting = st.starting
		v.QuestionCount = st.layout.Total()
	case *inProgressState:
		c.activeViewLocked(&v, st.activeSession)
	case *submittingState:
		c.activeViewLocked(&v, st.activeSession)
	case *completedState:
		v.Assignment = ptr(st.assignment)
		v.Result = &ResultView{Answered: st.answered, Total: st.total, Trigger: st.trigger}
	case *terminatedState:
		v.Assignment = ptr(st.assignment)
		v.Result = &ResultView{Reason: st.reason, Exits: st.exits}
	}
	return v
}

func (c *Controller) activeViewLocked(v *View, a *activeSession) {
	v.Assignment = ptr(a.assignment)
	total := a.layout.Total()
	v.QuestionCount = total

	if q, background, ok := a.layout.At(a.index); ok {
		v.Question = &QuestionView{
			Index:      a.index,
			Total:      total,
			IsFirst:    a.index == 0,
			IsLast:     a.index == total-1,
			Question:   q,
			Background: background,
			Selected:   a.answers.Selected(q.ID),
		}
	}

	markers := make([]bool, total)
	for i, q := range a.layout.Flat {
		markers[i] = a.answers.Answered(q.ID)
	}
	progress := &ProgressView{Answered: a.answers.Count(), Total: total, Markers: markers}
	if total > 0 {
		progress.Percent = float64(a.index+1) / float64(total) * 100
	}
	v.Progress = progress

	remaining := a.countdown.Remaining()
	display := timer.Split(remaining)
	v.Timer = &TimerView{
		RemainingSeconds: remaining,
		Clock:            display,
		Display:          display.String(),
		TimeLow:          c.timeLow(a.countdown.Total(), remaining),
	}

	status := c.monitor.Status()
	v.Integrity = &status
}

func ptr[T any](v T) *T {
	return &v
}

// timeLow reports whether remaining is inside the warning window. Sessions no
// longer than the window never enter it.
func (c *Controller) timeLow(total, remaining int) bool {
	threshold := c.cfg.TimeWarningSeconds
	return threshold > 0 && total > threshold && remaining <= threshold
}
