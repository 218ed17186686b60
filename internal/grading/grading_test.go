package grading

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func mcq(marks int, correct ...string) model.Question {
	q := model.Question{ID: uuid.New(), QuestionType: model.QuestionTypeMCQ, Marks: marks}
	for _, id := range []string{"A", "B", "C"} {
		isCorrect := false
		for _, c := range correct {
			if c == id {
				isCorrect = true
			}
		}
		q.Options = append(q.Options, model.Option{ID: id, Text: "option " + id, IsCorrect: isCorrect})
	}
	return q
}

func short(marks int, canonical *string) model.Question {
	return model.Question{ID: uuid.New(), QuestionType: model.QuestionTypeShortAnswer, Marks: marks, CorrectAnswer: canonical}
}

func answer(q model.Question, text string) model.Answer {
	return model.Answer{QuestionID: q.ID, Answer: text}
}

func TestGrade_MCQ(t *testing.T) {
	q := mcq(5, "B")

	tests := []struct {
		name   string
		answer string
		want   int
	}{
		{"correct option", "B", 5},
		{"wrong option", "A", 0},
		{"other wrong option", "C", 0},
		{"option text instead of id", "option B", 0},
		{"empty", "", 0},
		{"case differs", "b", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Grade([]model.Question{q}, []model.Answer{answer(q, tt.answer)}))
		})
	}
}

func TestGrade_MCQWithoutSingleCorrectOption(t *testing.T) {
	none := mcq(3)
	multiple := mcq(3, "A", "B")

	assert.Equal(t, 0, Grade([]model.Question{none}, []model.Answer{answer(none, "A")}))
	assert.Equal(t, 0, Grade([]model.Question{multiple}, []model.Answer{answer(multiple, "A")}))
	assert.Equal(t, 0, Grade([]model.Question{multiple}, []model.Answer{answer(multiple, "B")}))
}

func TestGrade_ShortAnswerIgnoresCaseAndSurroundingSpace(t *testing.T) {
	q := short(2, ptr("Paris"))

	for _, in := range []string{" Paris ", "paris", "Paris", "PARIS\n"} {
		assert.Equal(t, 2, Grade([]model.Question{q}, []model.Answer{answer(q, in)}), "answer %q", in)
	}
	assert.Equal(t, 0, Grade([]model.Question{q}, []model.Answer{answer(q, "Lyon")}))
	assert.Equal(t, 0, Grade([]model.Question{q}, []model.Answer{answer(q, "Pa ris")}))
}

// Short answers without a canonical answer are never auto-awarded marks.
// Manual grading for them does not exist yet.
func TestGrade_ShortAnswerWithoutCanonicalAnswerScoresZero(t *testing.T) {
	missing := short(4, nil)
	blank := short(4, ptr("   "))

	assert.Equal(t, 0, Grade([]model.Question{missing}, []model.Answer{answer(missing, "anything")}))
	assert.Equal(t, 0, Grade([]model.Question{blank}, []model.Answer{answer(blank, "")}))
}

func TestGrade_SkipsDeletedQuestionsAndSums(t *testing.T) {
	q1 := mcq(5, "B")
	q2 := short(3, ptr("42"))
	deleted := mcq(10, "A")
	essay := model.Question{ID: uuid.New(), QuestionType: "essay", Marks: 7}

	got := Grade(
		[]model.Question{q1, q2, essay},
		[]model.Answer{answer(q1, "B"), answer(q2, " 42 "), answer(deleted, "A"), answer(essay, "long text")},
	)

	assert.Equal(t, 8, got)
}

func TestGrade_NoAnswers(t *testing.T) {
	assert.Equal(t, 0, Grade([]model.Question{mcq(5, "A")}, nil))
}
