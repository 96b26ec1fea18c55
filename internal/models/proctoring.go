package models

import (
	"time"

	"gorm.io/datatypes"
)

type ProctoringEventType string

const (
	EventFullscreenExit    ProctoringEventType = "fullscreen_exit"
	EventFullscreenEnter   ProctoringEventType = "fullscreen_enter"
	EventFullscreenRefused ProctoringEventType = "fullscreen_refused"
	EventCopyPaste         ProctoringEventType = "copy_paste"
	EventSessionTerminated ProctoringEventType = "session_terminated"
)

// ProctoringEvent is one integrity signal acted upon during an in-progress session.
type ProctoringEvent struct {
	ID            uint                `json:"id" gorm:"primaryKey"`
	AssignmentID  int                 `json:"assignment_id" gorm:"not null;index"`
	PaperID       int                 `json:"paper_id" gorm:"not null;index"`
	ParticipantID *int                `json:"participant_id" gorm:"index"`
	Type          ProctoringEventType `json:"type" gorm:"not null;index;size:32"`

	// Event data
	Data     datatypes.JSON `json:"data" gorm:"type:jsonb"`
	Severity int            `json:"severity" gorm:"default:1"` // 1-5 (low to critical)

	// Context
	QuestionID *int `json:"question_id" gorm:"index"`
	TimeOffset int  `json:"time_offset"` // Seconds from session start

	CreatedAt time.Time `json:"created_at"`
}

func (ProctoringEvent) TableName() string {
	return "proctoring_events"
}
