package answers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctor-agent/internal/models"
)

func question(id int, typ models.QuestionType) *models.Question {
	return &models.Question{
		ID:   id,
		Type: typ,
		Options: []models.Option{
			{Label: "A"}, {Label: "B"}, {Label: "C"},
		},
	}
}

func TestStore_SingleChoiceHoldsOneLabel(t *testing.T) {
	s := NewStore()
	q := question(1, models.SingleChoice)

	require.NoError(t, s.Select(q, []string{"A"}))
	require.NoError(t, s.Select(q, []string{"B"}))
	assert.Equal(t, []string{"B"}, s.Selected(1))

	assert.ErrorIs(t, s.Select(q, []string{"A", "C"}), ErrTooManySelection)
	assert.Equal(t, []string{"B"}, s.Selected(1), "failed selection must not change the record")

	require.NoError(t, s.Select(q, []string{"C", "C"}))
	assert.Equal(t, []string{"C"}, s.Selected(1))
}

func TestStore_MultiSelectKeepsOrder(t *testing.T) {
	for _, typ := range []models.QuestionType{models.MultipleChoice, models.IndefiniteChoice} {
		s := NewStore()
		q := question(2, typ)

		require.NoError(t, s.Select(q, []string{"C", "A", "C"}))
		assert.Equal(t, []string{"C", "A"}, s.Selected(2))
	}
}

func TestStore_EmptySelectionClears(t *testing.T) {
	s := NewStore()
	q := question(3, models.MultipleChoice)

	require.NoError(t, s.Select(q, []string{"A"}))
	assert.True(t, s.Answered(3))

	require.NoError(t, s.Select(q, nil))
	assert.False(t, s.Answered(3))
	assert.Equal(t, 0, s.Count())
}

func TestStore_Rejections(t *testing.T) {
	s := NewStore()

	err := s.Select(question(4, models.SingleChoice), []string{"Z"})
	assert.ErrorIs(t, err, ErrUnknownOption)

	bg := &models.Question{ID: 5, Type: models.CaseBackground}
	assert.ErrorIs(t, s.Select(bg, []string{"A"}), ErrNotAnswerable)
	assert.ErrorIs(t, s.Select(nil, []string{"A"}), ErrNotAnswerable)
	assert.Equal(t, 0, s.Count())
}

func TestStore_SnapshotIsIndependent(t *testing.T) {
	s := NewStore()
	q := question(6, models.MultipleChoice)
	require.NoError(t, s.Select(q, []string{"A", "B"}))

	snap := s.Snapshot()
	snap[6][0] = "mutated"
	assert.Equal(t, []string{"A", "B"}, s.Selected(6))

	snap = s.Snapshot()
	require.NoError(t, s.Select(q, []string{"C"}))
	assert.Equal(t, []string{"A", "B"}, snap[6])

	wire := Record{6: {"A", "B"}, 12: {"C"}}.Wire()
	assert.Equal(t, map[string][]string{"6": {"A", "B"}, "12": {"C"}}, wire)
}
