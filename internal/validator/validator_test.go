package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctor-agent/internal/models"
)

func intPtr(v int) *int { return &v }

func TestValidator_CustomTags(t *testing.T) {
	v := New()

	ok := models.Question{ID: 1, Type: models.IndefiniteChoice, Options: []models.Option{{Label: "A"}}}
	assert.NoError(t, v.ValidateStruct(ok))

	bad := models.Question{ID: 1, Type: "essay"}
	err := v.ValidateStruct(bad)
	require.Error(t, err)
	errs := ToValidationErrors(err)
	require.Len(t, errs, 1)
	assert.Equal(t, "type", errs[0].Field)
	assert.Equal(t, "question_type", errs[0].Rule)

	a := models.Assignment{ID: 1, PaperID: 2, Status: "archived"}
	errs = ToValidationErrors(v.ValidateStruct(a))
	require.Len(t, errs, 1)
	assert.Equal(t, "status", errs[0].Field)
}

func TestQuestionValidator_FilterQuestions(t *testing.T) {
	v := New()
	questions := []models.Question{
		{ID: 1, Type: models.SingleChoice, Options: []models.Option{{Label: "A"}, {Label: "B"}}},
		{ID: 2, Type: models.SingleChoice},                                                      // no options
		{ID: 3, Type: models.SingleChoice, Options: []models.Option{{Label: "A"}, {Label: "A"}}}, // repeated label
		{ID: 1, Type: models.SingleChoice, Options: []models.Option{{Label: "A"}}},               // repeated id
		{ID: 4, Type: "essay", Options: []models.Option{{Label: "A"}}},
		{ID: 5, Type: models.CaseBackground},
		{ID: 6, Type: models.MultipleChoice, Options: []models.Option{{Label: "A"}}, ParentCaseID: intPtr(5)},
		{ID: 7, Type: models.MultipleChoice, Options: []models.Option{{Label: "A"}}, ParentCaseID: intPtr(99)},
	}

	valid, issues := v.Question().FilterQuestions(questions)

	ids := make([]int, 0, len(valid))
	for _, q := range valid {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []int{1, 5, 6, 7}, ids)
	assert.Len(t, issues, 5)
}

func TestValidator_FilterAssignments(t *testing.T) {
	v := New()
	list := []models.Assignment{
		{ID: 1, PaperID: 1, Status: models.AssignmentAssigned},
		{ID: 0, PaperID: 1, Status: models.AssignmentAssigned},
		{ID: 2, PaperID: 1, Status: models.AssignmentCompleted},
	}

	valid, issues := v.FilterAssignments(list)

	assert.Len(t, valid, 2)
	require.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Field, "assignments[1]")
}
