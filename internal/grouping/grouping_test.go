package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctor-agent/internal/models"
)

func intPtr(v int) *int { return &v }

func single(id int) models.Question {
	return models.Question{
		ID:   id,
		Type: models.SingleChoice,
		Options: []models.Option{
			{Label: "A", Text: "yes"},
			{Label: "B", Text: "no"},
		},
	}
}

func child(id, parent int) models.Question {
	q := single(id)
	q.ParentCaseID = intPtr(parent)
	return q
}

func background(id int) models.Question {
	return models.Question{ID: id, Type: models.CaseBackground, Content: "case text"}
}

func flatIDs(l *Layout) []int {
	ids := make([]int, 0, len(l.Flat))
	for _, q := range l.Flat {
		ids = append(ids, q.ID)
	}
	return ids
}

func TestBuild_StandaloneQuestionsPrecedeCaseGroups(t *testing.T) {
	questions := []models.Question{
		background(10),
		child(11, 10),
		single(1),
		child(12, 10),
		background(20),
		single(2),
		child(21, 20),
		single(3),
	}

	l := Build(questions, Options{})

	require.Len(t, l.Groups, 5)
	for i := 0; i < 3; i++ {
		assert.False(t, l.Groups[i].IsCase(), "group %d should be standalone", i)
	}
	assert.Equal(t, 10, l.Groups[3].Background.ID)
	assert.Equal(t, 20, l.Groups[4].Background.ID)

	assert.Equal(t, []int{1, 2, 3, 11, 12, 21}, flatIDs(l))
	assert.Equal(t, 6, l.Total())
	for pos, id := range flatIDs(l) {
		assert.Equal(t, pos, l.Index[id])
	}
}

func TestBuild_CaseGroupKeepsInputOrderOfChildren(t *testing.T) {
	questions := []models.Question{
		child(33, 30),
		background(30),
		child(31, 30),
		child(32, 30),
	}

	l := Build(questions, Options{})

	require.Len(t, l.Groups, 1)
	g := l.Groups[0]
	require.True(t, g.IsCase())
	ids := []int{}
	for _, q := range g.SubQuestions {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []int{33, 31, 32}, ids)
}

func TestBuild_OrphanedSubQuestionIsDropped(t *testing.T) {
	questions := []models.Question{
		single(1),
		child(2, 99),
		single(3),
		child(4, 1), // parent exists but is not a case background
	}

	l := Build(questions, Options{})

	assert.Equal(t, []int{1, 3}, flatIDs(l))
	_, ok := l.Index[2]
	assert.False(t, ok)
	_, ok = l.Index[4]
	assert.False(t, ok)
	for _, g := range l.Groups {
		for _, q := range g.Answerable() {
			assert.NotEqual(t, 2, q.ID)
		}
	}
}

func TestBuild_EmptyCaseBackgroundContributesNothing(t *testing.T) {
	questions := []models.Question{
		background(10),
		single(1),
		background(20),
		child(21, 20),
	}

	l := Build(questions, Options{})

	require.Len(t, l.Groups, 2)
	assert.Equal(t, 20, l.Groups[1].Background.ID)
	assert.Equal(t, 2, l.Total())
	_, ok := l.Index[10]
	assert.False(t, ok)
	_, ok = l.Index[20]
	assert.False(t, ok, "backgrounds are never answerable")
}

func TestBuild_FlatLengthProperty(t *testing.T) {
	cases := []struct {
		name      string
		questions []models.Question
		want      int
	}{
		{"empty", nil, 0},
		{"only standalone", []models.Question{single(1), single(2)}, 2},
		{"only backgrounds", []models.Question{background(1), background(2)}, 0},
		{"mixed", []models.Question{background(1), child(2, 1), child(3, 1), single(4), background(5)}, 3},
		{"duplicate ids", []models.Question{single(1), single(1), single(2)}, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := Build(tc.questions, Options{})
			assert.Equal(t, tc.want, l.Total())
			assert.Len(t, l.Index, tc.want)
		})
	}
}

func TestLayout_AtShowsSharedBackground(t *testing.T) {
	questions := []models.Question{
		background(100),
		child(101, 100),
		child(102, 100),
		single(1),
	}

	l := Build(questions, Options{})
	require.Equal(t, 3, l.Total())

	// standalone first, then the case group
	q, bg, ok := l.At(0)
	require.True(t, ok)
	assert.Equal(t, 1, q.ID)
	assert.Nil(t, bg)

	q1, bg1, ok := l.At(1)
	require.True(t, ok)
	q2, bg2, ok := l.At(2)
	require.True(t, ok)
	require.NotNil(t, bg1)
	assert.Same(t, bg1, bg2)
	assert.Equal(t, 100, bg1.ID)
	assert.NotEqual(t, q1.ID, q2.ID)

	_, _, ok = l.At(3)
	assert.False(t, ok)
	_, _, ok = l.At(-1)
	assert.False(t, ok)
}

func TestBuild_PreserveOrder(t *testing.T) {
	questions := []models.Question{
		single(1),
		background(10),
		child(11, 10),
		single(2),
		child(12, 10),
		child(21, 20),
		background(20),
		single(3),
		background(30),
	}

	l := Build(questions, Options{PreserveOrder: true})

	require.Len(t, l.Groups, 5)
	assert.Equal(t, 1, l.Groups[0].Standalone.ID)
	assert.Equal(t, 10, l.Groups[1].Background.ID)
	assert.Equal(t, 2, l.Groups[2].Standalone.ID)
	assert.Equal(t, 20, l.Groups[3].Background.ID)
	assert.Equal(t, 3, l.Groups[4].Standalone.ID)
	assert.Equal(t, []int{1, 11, 12, 2, 21, 3}, flatIDs(l))
}

func TestBuild_DoesNotAliasInput(t *testing.T) {
	questions := []models.Question{single(1)}
	l := Build(questions, Options{})

	questions[0].Content = "changed"
	assert.Empty(t, l.Flat[0].Content)
}
