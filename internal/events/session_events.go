package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the kinds of session lifecycle events
type EventType string

const (
	EventSessionStarted      EventType = "session.started"
	EventSessionSubmitted    EventType = "session.submitted"
	EventSessionSubmitFailed EventType = "session.submit_failed"
	EventSessionTerminated   EventType = "session.terminated"
	EventSessionTimeWarning  EventType = "session.time_warning"
	EventRedoRequested       EventType = "session.redo_requested"

	EventIntegrityViolation   EventType = "integrity.violation"
	EventIntegrityCopyBlocked EventType = "integrity.copy_blocked"
)

const (
	EventSource  = "proctor-agent"
	EventVersion = "1.0"
)

// SessionEvent is the envelope for every event the agent publishes
type SessionEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewSessionEvent wraps data in an envelope with a fresh id.
func NewSessionEvent(eventType EventType, data interface{}, at time.Time) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: at,
		Source:    EventSource,
		Version:   EventVersion,
		Data:      data,
	}
}

// Session event payloads

type SessionStartedEvent struct {
	AssignmentID    int    `json:"assignment_id"`
	PaperID         int    `json:"paper_id"`
	PaperName       string `json:"paper_name"`
	ParticipantID   *int   `json:"participant_id,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	QuestionCount   int    `json:"question_count"`
	FullscreenOK    bool   `json:"fullscreen_ok"`
}

type SessionSubmittedEvent struct {
	AssignmentID     int    `json:"assignment_id"`
	PaperID          int    `json:"paper_id"`
	ParticipantID    *int   `json:"participant_id,omitempty"`
	Trigger          string `json:"trigger"` // manual or timeout
	AnsweredCount    int    `json:"answered_count"`
	QuestionCount    int    `json:"question_count"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type SessionSubmitFailedEvent struct {
	AssignmentID     int    `json:"assignment_id"`
	Trigger          string `json:"trigger"`
	Error            string `json:"error"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type SessionTerminatedEvent struct {
	AssignmentID   int    `json:"assignment_id"`
	PaperID        int    `json:"paper_id"`
	ParticipantID  *int   `json:"participant_id,omitempty"`
	Reason         string `json:"reason"`
	FullscreenExit int    `json:"fullscreen_exits"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
}

type SessionTimeWarningEvent struct {
	AssignmentID     int `json:"assignment_id"`
	RemainingSeconds int `json:"remaining_seconds"`
}

type RedoRequestedEvent struct {
	AssignmentID  int  `json:"assignment_id"`
	ParticipantID *int `json:"participant_id,omitempty"`
}

// Integrity event payloads

type IntegrityEvent struct {
	AssignmentID   int  `json:"assignment_id"`
	QuestionID     *int `json:"question_id,omitempty"`
	Exits          int  `json:"exits"`
	RemainingExits int  `json:"remaining_exits"`
	ElapsedSeconds int  `json:"elapsed_seconds"`
}
