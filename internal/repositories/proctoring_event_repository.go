package repositories

import (
	"context"

	"github.com/SAP-F-2025/proctor-agent/internal/models"
)

type ProctoringEventFilters struct {
	Type     *models.ProctoringEventType `json:"type"`
	MinLevel int                         `json:"min_severity"`
	Limit    int                         `json:"limit"`
	Offset   int                         `json:"offset"`
}

// ProctoringEventRepository stores the integrity audit trail of sessions.
type ProctoringEventRepository interface {
	Create(ctx context.Context, event *models.ProctoringEvent) error
	ListByAssignment(ctx context.Context, assignmentID int, filters ProctoringEventFilters) ([]*models.ProctoringEvent, int64, error)
	CountByType(ctx context.Context, assignmentID int) (map[models.ProctoringEventType]int64, error)
}
