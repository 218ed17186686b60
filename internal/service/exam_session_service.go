package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/events"
	"github.com/stemsi/exstem-proctor/internal/grading"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/randomizer"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

// ExamSessionService drives the session state machine:
// in_progress → completed | auto_submitted.
type ExamSessionService struct {
	sessions  repository.ExamSessionRepo
	exams     repository.ExamRepo
	questions repository.QuestionRepo
	events    events.Emitter
	rdb       *redis.Client
	grace     time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewExamSessionService creates a new ExamSessionService. rdb receives the
// integrity report jobs and may be nil to skip them.
func NewExamSessionService(
	store *repository.Store,
	emitter events.Emitter,
	rdb *redis.Client,
	grace time.Duration,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		sessions:  store.Sessions,
		exams:     store.Exams,
		questions: store.Questions,
		events:    emitter,
		rdb:       rdb,
		grace:     grace,
		log:       log.With().Str("component", "exam_session_service").Logger(),
		now:       time.Now,
	}
}

// Start opens the student's session for an exam, or resumes the one already
// in progress. A finished attempt cannot be restarted.
func (s *ExamSessionService) Start(ctx context.Context, p model.StudentPrincipal, examID uuid.UUID) (*model.StartExamResult, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}

	existing, err := s.sessions.GetByStudentAndExam(ctx, p.ID, examID)
	switch {
	case err == nil:
		return s.resume(ctx, existing, exam)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("check existing session: %w", err)
	}

	if !exam.OpenAt(s.now()) || !exam.EligibleFor(p.Department, p.Semester) {
		return nil, ErrExamNotAvailable
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	projection := randomizer.Project(questions, p.ID, examID)

	session := &model.ExamSession{
		StudentID:     p.ID,
		ExamID:        examID,
		QuestionOrder: randomizer.Order(projection),
	}
	created, err := s.sessions.Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if !created {
		// A concurrent start won; return its session.
		winner, err := s.sessions.GetByStudentAndExam(ctx, p.ID, examID)
		if err != nil {
			return nil, fmt.Errorf("fetch concurrent session: %w", err)
		}
		return s.resume(ctx, winner, exam)
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("student_id", p.ID.String()).
		Str("exam_id", examID.String()).
		Msg("Exam session started")

	s.events.Emit(ctx, model.MonitorEvent{
		Type:      model.MonitorSessionStarted,
		ExamID:    examID,
		SessionID: session.ID,
		StudentID: p.ID,
		Status:    session.Status,
	})

	return &model.StartExamResult{
		Session:         session,
		Exam:            exam,
		Questions:       projection,
		ExistingAnswers: []model.Answer{},
	}, nil
}

// resume recomputes the projection for an existing session. The layout is
// seeded by (student, exam), so it matches what the student saw before.
func (s *ExamSessionService) resume(ctx context.Context, session *model.ExamSession, exam *model.Exam) (*model.StartExamResult, error) {
	if session.Status.Terminal() {
		return nil, ErrAlreadyCompleted
	}

	questions, err := s.questions.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	answers, err := s.sessions.ListAnswers(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	return &model.StartExamResult{
		Session:         session,
		Exam:            exam,
		Questions:       randomizer.Project(questions, session.StudentID, exam.ID),
		ExistingAnswers: answers,
		Resumed:         true,
	}, nil
}

// activeSession returns the student's in-progress session for an exam.
func (s *ExamSessionService) activeSession(ctx context.Context, studentID, examID uuid.UUID) (*model.ExamSession, error) {
	session, err := s.sessions.GetByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.Status != model.SessionStatusInProgress {
		return nil, ErrNoActiveSession
	}
	return session, nil
}

// Deadline is the latest time answers are accepted for a session.
func (s *ExamSessionService) Deadline(session *model.ExamSession, exam *model.Exam) time.Time {
	deadline := session.StartTime.Add(time.Duration(exam.DurationMinutes) * time.Minute)
	if exam.EndTime.Before(deadline) {
		deadline = exam.EndTime
	}
	return deadline.Add(s.grace)
}

// SubmitAnswer stores or replaces the answer to one question. Nothing is
// graded until the session is finalized.
func (s *ExamSessionService) SubmitAnswer(ctx context.Context, p model.StudentPrincipal, examID uuid.UUID, req model.SubmitAnswerRequest) (*model.Answer, error) {
	session, err := s.activeSession(ctx, p.ID, examID)
	if err != nil {
		return nil, err
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if s.now().After(s.Deadline(session, exam)) {
		if _, err := s.Finalize(ctx, session.ID, model.SessionStatusCompleted); err != nil && !errors.Is(err, ErrSessionAlreadyFinalized) {
			s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Failed to close overdue session")
		}
		return nil, ErrNoActiveSession
	}

	question, err := s.questions.GetByID(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}
	if question.ExamID != examID {
		return nil, ErrNotFound
	}

	answer := &model.Answer{
		SessionID:        session.ID,
		QuestionID:       req.QuestionID,
		Answer:           req.Answer,
		TimeTakenSeconds: req.TimeTakenSeconds,
	}
	if err := s.sessions.UpsertAnswer(ctx, answer); err != nil {
		return nil, err
	}

	s.events.Emit(ctx, model.MonitorEvent{
		Type:      model.MonitorAnswerSaved,
		ExamID:    examID,
		SessionID: session.ID,
		StudentID: p.ID,
		Status:    model.SessionStatusInProgress,
		RiskScore: session.RiskScore,
	})
	return answer, nil
}

// Finalize grades and closes an in-progress session. Every terminal
// transition goes through here; a second call fails with
// ErrSessionAlreadyFinalized and never re-grades.
func (s *ExamSessionService) Finalize(ctx context.Context, sessionID uuid.UUID, status model.SessionStatus) (*model.ExamSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, ErrSessionAlreadyFinalized
	}

	questions, err := s.questions.ListByExam(ctx, session.ExamID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	done, err := s.sessions.Finalize(ctx, sessionID, status, func(answers []model.Answer) int {
		return grading.Grade(questions, answers)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("status", string(done.Status)).
		Int("risk_score", done.RiskScore).
		Msg("Exam session finalized")

	s.events.Emit(ctx, model.MonitorEvent{
		Type:      model.MonitorSessionFinalized,
		ExamID:    done.ExamID,
		SessionID: done.ID,
		StudentID: done.StudentID,
		Status:    done.Status,
		RiskScore: done.RiskScore,
		Marks:     done.MarksObtained,
	})
	s.enqueueReport(ctx, done.ID)
	return done, nil
}

// enqueueReport schedules the integrity report build. Failure only delays
// the report; it can still be built on demand.
func (s *ExamSessionService) enqueueReport(ctx context.Context, sessionID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.IntegrityReportQueue, sessionID.String()).Err(); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to enqueue integrity report")
	}
}

// Submit is the student's explicit finish. Losing a race against an
// auto-submit is not an error: the stored terminal session is returned.
func (s *ExamSessionService) Submit(ctx context.Context, p model.StudentPrincipal, examID uuid.UUID) (*model.ExamSession, error) {
	session, err := s.sessions.GetByStudentAndExam(ctx, p.ID, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	done, err := s.Finalize(ctx, session.ID, model.SessionStatusCompleted)
	if errors.Is(err, ErrSessionAlreadyFinalized) {
		return s.sessions.GetByID(ctx, session.ID)
	}
	return done, err
}

// State returns the student's session for an exam with its saved answers.
func (s *ExamSessionService) State(ctx context.Context, p model.StudentPrincipal, examID uuid.UUID) (*model.SessionState, error) {
	session, err := s.sessions.GetByStudentAndExam(ctx, p.ID, examID)
	if err != nil {
		return nil, err
	}
	answers, err := s.sessions.ListAnswers(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return &model.SessionState{Session: session, Answers: answers}, nil
}

// GetSession returns a session by id, for admins.
func (s *ExamSessionService) GetSession(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return s.sessions.GetByID(ctx, id)
}

// SweepOverdue finalizes sessions past their deadline and sessions left at
// or above the auto-submit threshold. It returns how many it closed.
func (s *ExamSessionService) SweepOverdue(ctx context.Context, autoSubmitAt int) (int, error) {
	closed := 0

	overdue, err := s.sessions.ListOverdue(ctx, s.now(), s.grace)
	if err != nil {
		return 0, fmt.Errorf("list overdue sessions: %w", err)
	}
	for _, id := range overdue {
		if s.finalizeQuietly(ctx, id, model.SessionStatusCompleted) {
			closed++
		}
	}

	atRisk, err := s.sessions.ListAtRisk(ctx, autoSubmitAt)
	if err != nil {
		return closed, fmt.Errorf("list at-risk sessions: %w", err)
	}
	for _, id := range atRisk {
		if s.finalizeQuietly(ctx, id, model.SessionStatusAutoSubmitted) {
			closed++
		}
	}
	return closed, nil
}

func (s *ExamSessionService) finalizeQuietly(ctx context.Context, id uuid.UUID, status model.SessionStatus) bool {
	_, err := s.Finalize(ctx, id, status)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrSessionAlreadyFinalized), errors.Is(err, ErrNotFound):
		return false
	default:
		s.log.Error().Err(err).Str("session_id", id.String()).Msg("Failed to finalize session")
		return false
	}
}
