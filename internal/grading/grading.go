// Package grading scores submitted answers against an exam's answer key.
package grading

import (
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// Grade returns the total marks earned by answers. Answers whose question no
// longer exists are ignored.
func Grade(questions []model.Question, answers []model.Answer) int {
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	total := 0
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		if Correct(q, a.Answer) && q.Marks > 0 {
			total += q.Marks
		}
	}
	return total
}

// Correct reports whether answer earns the marks of q.
func Correct(q *model.Question, answer string) bool {
	switch q.QuestionType {
	case model.QuestionTypeMCQ:
		id, ok := correctOptionID(q.Options)
		return ok && answer == id
	case model.QuestionTypeShortAnswer:
		// Without a canonical answer the question cannot be auto-graded.
		if q.CorrectAnswer == nil || strings.TrimSpace(*q.CorrectAnswer) == "" {
			return false
		}
		return normalize(answer) == normalize(*q.CorrectAnswer)
	default:
		return false
	}
}

// correctOptionID returns the id of the single option flagged correct.
func correctOptionID(options []model.Option) (string, bool) {
	id, found := "", 0
	for _, o := range options {
		if o.IsCorrect {
			id = o.ID
			found++
		}
	}
	return id, found == 1
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
