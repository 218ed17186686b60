// Package randomizer builds the per-student question layout of an exam.
//
// The layout is a pure function of (student, exam): the same pair always
// yields the same question and option order, so a resumed session renders
// exactly as before, while different students get different orders.
package randomizer

import (
	"math/rand/v2"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// Seed derives the shuffle seed for a student/exam pair.
func Seed(studentID, examID uuid.UUID) uint64 {
	return xxhash.Sum64String(studentID.String() + ":" + examID.String())
}

// newRand returns a generator owned by a single call.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Project returns the student-facing question set for the pair, shuffled and
// stripped of answer keys. The input slice is not modified.
func Project(questions []model.Question, studentID, examID uuid.UUID) []model.QuestionProjection {
	ordered := canonicalOrder(questions)
	r := newRand(Seed(studentID, examID))

	r.Shuffle(len(ordered), func(i, j int) {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	})

	out := make([]model.QuestionProjection, 0, len(ordered))
	for _, q := range ordered {
		p := model.QuestionProjection{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			QuestionType: q.QuestionType,
			Marks:        q.Marks,
			ImageBase64:  q.ImageBase64,
		}
		if len(q.Options) > 0 {
			opts := make([]model.OptionProjection, len(q.Options))
			for i, o := range q.Options {
				opts[i] = model.OptionProjection{ID: o.ID, Text: o.Text}
			}
			r.Shuffle(len(opts), func(i, j int) {
				opts[i], opts[j] = opts[j], opts[i]
			})
			p.Options = opts
		}
		out = append(out, p)
	}
	return out
}

// Order returns only the question ids of a projection, in display order.
func Order(projection []model.QuestionProjection) []uuid.UUID {
	ids := make([]uuid.UUID, len(projection))
	for i, p := range projection {
		ids[i] = p.ID
	}
	return ids
}

// canonicalOrder copies the questions into a stable order so the shuffle does
// not depend on how storage happened to return them.
func canonicalOrder(questions []model.Question) []model.Question {
	ordered := make([]model.Question, len(questions))
	copy(ordered, questions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].OrderNum != ordered[j].OrderNum {
			return ordered[i].OrderNum < ordered[j].OrderNum
		}
		return ordered[i].ID.String() < ordered[j].ID.String()
	})
	return ordered
}
