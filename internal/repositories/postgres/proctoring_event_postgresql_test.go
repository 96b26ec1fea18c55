package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/proctor-agent/internal/models"
	"github.com/SAP-F-2025/proctor-agent/internal/repositories"
)

// Integration test, requires a postgres at TEST_DATABASE_URL
func TestProctoringEventPostgreSQL_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if testing.Short() || dsn == "" {
		t.Skip("Skipping integration test")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ProctoringEvent{}))

	assignmentID := int(time.Now().UnixNano() % 1_000_000_000)
	t.Cleanup(func() {
		db.Where("assignment_id = ?", assignmentID).Delete(&models.ProctoringEvent{})
	})

	repo := NewProctoringEventPostgreSQL(db)
	ctx := context.Background()
	for _, typ := range []models.ProctoringEventType{
		models.EventFullscreenExit,
		models.EventCopyPaste,
		models.EventFullscreenExit,
	} {
		require.NoError(t, repo.Create(ctx, &models.ProctoringEvent{
			AssignmentID: assignmentID,
			PaperID:      1,
			Type:         typ,
			Data:         datatypes.JSON(`{"exits": 1}`),
			Severity:     3,
		}))
	}

	exits := models.EventFullscreenExit
	events, total, err := repo.ListByAssignment(ctx, assignmentID, repositories.ProctoringEventFilters{Type: &exits})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, events, 2)

	counts, err := repo.CountByType(ctx, assignmentID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.EventFullscreenExit])
	assert.Equal(t, int64(1), counts[models.EventCopyPaste])
}
