package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

const defaultQuestionMarks = 1

// QuestionService manages the questions of an exam.
type QuestionService struct {
	exams     repository.ExamRepo
	questions repository.QuestionRepo
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(store *repository.Store) *QuestionService {
	return &QuestionService{exams: store.Exams, questions: store.Questions}
}

// buildQuestion validates a request and assigns option ids where missing.
func buildQuestion(examID uuid.UUID, req model.CreateQuestionRequest) (*model.Question, error) {
	q := &model.Question{
		ExamID:       examID,
		QuestionText: strings.TrimSpace(req.QuestionText),
		QuestionType: req.QuestionType,
		Marks:        req.Marks,
		ImageBase64:  req.ImageBase64,
		Options:      make([]model.Option, 0, len(req.Options)),
	}
	if q.Marks == 0 {
		q.Marks = defaultQuestionMarks
	}
	if req.CorrectAnswer != nil {
		answer := strings.TrimSpace(*req.CorrectAnswer)
		q.CorrectAnswer = &answer
	}

	if q.QuestionType == model.QuestionTypeMCQ && len(req.Options) < 2 {
		return nil, fmt.Errorf("%w: multiple choice needs at least two options", ErrInvalidQuestion)
	}

	seen := make(map[string]struct{}, len(req.Options))
	for _, in := range req.Options {
		id := strings.TrimSpace(in.ID)
		if id == "" {
			id = uuid.New().String()
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate option id %q", ErrInvalidQuestion, id)
		}
		seen[id] = struct{}{}
		q.Options = append(q.Options, model.Option{ID: id, Text: in.Text, IsCorrect: in.IsCorrect})
	}
	return q, nil
}

// Create adds one question to an exam.
func (s *QuestionService) Create(ctx context.Context, examID uuid.UUID, req model.CreateQuestionRequest) (*model.Question, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		return nil, err
	}
	q, err := buildQuestion(examID, req)
	if err != nil {
		return nil, err
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// BulkCreate inserts parser output confirmed by an admin. Either every
// question is stored or none is.
func (s *QuestionService) BulkCreate(ctx context.Context, examID uuid.UUID, req model.BulkCreateQuestionsRequest) ([]model.Question, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		return nil, err
	}

	batch := make([]*model.Question, 0, len(req.Questions))
	for i, in := range req.Questions {
		q, err := buildQuestion(examID, in)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		batch = append(batch, q)
	}
	if err := s.questions.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("create questions: %w", err)
	}

	out := make([]model.Question, len(batch))
	for i, q := range batch {
		out[i] = *q
	}
	return out, nil
}

// ListByExam returns an exam's questions with answer keys, for admins.
func (s *QuestionService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		return nil, err
	}
	return s.questions.ListByExam(ctx, examID)
}

// Delete removes a question. Answers already given to it stop counting.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.questions.Delete(ctx, id)
}
