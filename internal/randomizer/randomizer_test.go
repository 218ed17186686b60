package randomizer

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:           uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("q-%d", i))),
			QuestionText: fmt.Sprintf("Question %d", i),
			QuestionType: model.QuestionTypeMCQ,
			Marks:        1,
			OrderNum:     i,
			Options: []model.Option{
				{ID: "a", Text: "A"},
				{ID: "b", Text: "B", IsCorrect: true},
				{ID: "c", Text: "C"},
				{ID: "d", Text: "D"},
			},
		}
	}
	return qs
}

func TestProject_DeterministicForSamePair(t *testing.T) {
	qs := sampleQuestions(12)
	student := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	exam := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	first := Project(qs, student, exam)
	second := Project(qs, student, exam)

	assert.Equal(t, first, second)
}

func TestProject_IndependentOfInputOrder(t *testing.T) {
	qs := sampleQuestions(8)
	reversed := make([]model.Question, len(qs))
	for i := range qs {
		reversed[len(qs)-1-i] = qs[i]
	}
	student, exam := uuid.New(), uuid.New()

	assert.Equal(t, Project(qs, student, exam), Project(reversed, student, exam))
}

func TestProject_DifferentStudentsDiffer(t *testing.T) {
	qs := sampleQuestions(12)
	exam := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	s1 := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	s2 := uuid.MustParse("33333333-3333-3333-3333-333333333333")

	require.NotEqual(t, Seed(s1, exam), Seed(s2, exam))
	assert.NotEqual(t, Order(Project(qs, s1, exam)), Order(Project(qs, s2, exam)))
}

func TestProject_IsPermutation(t *testing.T) {
	qs := sampleQuestions(10)
	proj := Project(qs, uuid.New(), uuid.New())

	require.Len(t, proj, len(qs))
	seen := map[uuid.UUID]bool{}
	for _, p := range proj {
		seen[p.ID] = true
		assert.Len(t, p.Options, 4)
	}
	for _, q := range qs {
		assert.True(t, seen[q.ID], "question %s missing from projection", q.ID)
	}
}

func TestProject_StripsAnswerKey(t *testing.T) {
	canonical := "Paris"
	qs := sampleQuestions(3)
	qs = append(qs, model.Question{
		ID:            uuid.New(),
		QuestionText:  "Capital of France?",
		QuestionType:  model.QuestionTypeShortAnswer,
		CorrectAnswer: &canonical,
		Marks:         2,
		OrderNum:      99,
	})

	raw, err := json.Marshal(Project(qs, uuid.New(), uuid.New()))
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "is_correct")
	assert.NotContains(t, string(raw), "correct_answer")
	assert.NotContains(t, string(raw), "Paris")
}

func TestProject_DoesNotMutateInput(t *testing.T) {
	qs := sampleQuestions(6)
	before := make([]uuid.UUID, len(qs))
	for i, q := range qs {
		before[i] = q.ID
	}

	Project(qs, uuid.New(), uuid.New())

	for i, q := range qs {
		assert.Equal(t, before[i], q.ID)
		assert.Equal(t, "a", q.Options[0].ID)
	}
}

func TestProject_Empty(t *testing.T) {
	assert.Empty(t, Project(nil, uuid.New(), uuid.New()))
}
