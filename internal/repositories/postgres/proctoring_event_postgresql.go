package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/proctor-agent/internal/models"
	"github.com/SAP-F-2025/proctor-agent/internal/repositories"
)

type ProctoringEventPostgreSQL struct {
	db *gorm.DB
}

func NewProctoringEventPostgreSQL(db *gorm.DB) repositories.ProctoringEventRepository {
	return &ProctoringEventPostgreSQL{db: db}
}

// Create inserts one audit record
func (p *ProctoringEventPostgreSQL) Create(ctx context.Context, event *models.ProctoringEvent) error {
	if err := p.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create proctoring event: %w", err)
	}
	return nil
}

// ListByAssignment returns the audit trail of an assignment, oldest first
func (p *ProctoringEventPostgreSQL) ListByAssignment(ctx context.Context, assignmentID int, filters repositories.ProctoringEventFilters) ([]*models.ProctoringEvent, int64, error) {
	query := p.db.WithContext(ctx).Model(&models.ProctoringEvent{}).
		Where("assignment_id = ?", assignmentID)

	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.MinLevel > 0 {
		query = query.Where("severity >= ?", filters.MinLevel)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count proctoring events: %w", err)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var events []*models.ProctoringEvent
	if err := query.Order("created_at ASC, id ASC").Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list proctoring events: %w", err)
	}
	return events, total, nil
}

// CountByType returns how many events of each type an assignment produced
func (p *ProctoringEventPostgreSQL) CountByType(ctx context.Context, assignmentID int) (map[models.ProctoringEventType]int64, error) {
	var rows []struct {
		Type  models.ProctoringEventType
		Count int64
	}
	err := p.db.WithContext(ctx).Model(&models.ProctoringEvent{}).
		Select("type, COUNT(*) AS count").
		Where("assignment_id = ?", assignmentID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count proctoring events by type: %w", err)
	}

	out := make(map[models.ProctoringEventType]int64, len(rows))
	for _, r := range rows {
		out[r.Type] = r.Count
	}
	return out, nil
}
