package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

// ExamService handles exam business logic.
type ExamService struct {
	exams     repository.ExamRepo
	questions repository.QuestionRepo
	sessions  repository.ExamSessionRepo
	log       zerolog.Logger
	now       func() time.Time
}

// NewExamService creates a new ExamService.
func NewExamService(store *repository.Store, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams:     store.Exams,
		questions: store.Questions,
		sessions:  store.Sessions,
		log:       log.With().Str("component", "exam_service").Logger(),
		now:       time.Now,
	}
}

// Create creates a new exam. Exams are active unless the request says otherwise.
func (s *ExamService) Create(ctx context.Context, req model.CreateExamRequest) (*model.Exam, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidExamWindow
	}
	exam := &model.Exam{
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		TotalMarks:      req.TotalMarks,
		Department:      req.Department,
		Semester:        req.Semester,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		IsActive:        true,
	}
	if req.IsActive != nil {
		exam.IsActive = *req.IsActive
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	s.log.Info().Str("exam_id", exam.ID.String()).Str("title", exam.Title).Msg("Exam created")
	return exam, nil
}

// List returns every exam with its question count.
func (s *ExamService) List(ctx context.Context) ([]model.Exam, error) {
	return s.exams.List(ctx)
}

// GetByID returns a single exam.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.exams.GetByID(ctx, id)
}

// GetDetail returns the exam with its questions, answer keys included.
func (s *ExamService) GetDetail(ctx context.Context, id uuid.UUID) (*model.ExamDetail, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions.ListByExam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return &model.ExamDetail{Exam: *exam, Questions: questions}, nil
}

// Update applies a partial update.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, req model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(exam)
	if !exam.EndTime.After(exam.StartTime) {
		return nil, ErrInvalidExamWindow
	}
	if err := s.exams.Update(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// Delete removes the exam along with its questions and sessions.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.exams.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("exam_id", id.String()).Msg("Exam deleted")
	return nil
}

// ListAvailable returns the open exams of the student's cohort, each marked
// with the student's attempt state.
func (s *ExamService) ListAvailable(ctx context.Context, p model.StudentPrincipal) ([]model.AvailableExam, error) {
	exams, err := s.exams.ListAvailable(ctx, p.Department, p.Semester, s.now())
	if err != nil {
		return nil, fmt.Errorf("list available exams: %w", err)
	}

	sessions, err := s.sessions.ListByStudent(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	byExam := make(map[uuid.UUID]model.SessionStatus, len(sessions))
	for _, sess := range sessions {
		byExam[sess.ExamID] = sess.Status
	}

	out := make([]model.AvailableExam, 0, len(exams))
	for _, e := range exams {
		entry := model.AvailableExam{Exam: e}
		if status, ok := byExam[e.ID]; ok {
			entry.Attempted = true
			entry.SessionStatus = &status
		}
		out = append(out, entry)
	}
	return out, nil
}
