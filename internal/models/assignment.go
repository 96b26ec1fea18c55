package models

type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentStarted   AssignmentStatus = "started"
	AssignmentCompleted AssignmentStatus = "completed"
)

// Assignment is a participant's claim on one paper, as reported by the backend.
// Timestamps are kept in the backend's "2006-01-02 15:04:05" text form.
type Assignment struct {
	ID               int              `json:"id" validate:"required,min=1"`
	PaperID          int              `json:"paper_id" validate:"required,min=1"`
	PaperName        string           `json:"paper_name"`
	PaperDescription string           `json:"paper_description"`
	Duration         int              `json:"duration" validate:"min=0"` // minutes
	Status           AssignmentStatus `json:"status" validate:"assignment_status"`
	AssignedAt       *string          `json:"assigned_at"`
	StartedAt        *string          `json:"started_at"`
	CompletedAt      *string          `json:"completed_at"`
}

// Eligible reports whether a session may be started for the assignment.
func (a Assignment) Eligible() bool {
	return a.Status == AssignmentAssigned
}
