package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// Storage errors shared by every implementation.
var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicate        = errors.New("record already exists")
	ErrSessionNotActive = errors.New("exam session is not in progress")
	ErrSessionFinalized = errors.New("exam session already finalized")
	ErrCheckNotPending  = errors.New("camera check is not pending")
)

type StudentRepo interface {
	Create(ctx context.Context, s *model.Student) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
	GetByRollNumber(ctx context.Context, rollNumber string) (*model.Student, error)
	List(ctx context.Context, limit, offset int) ([]model.Student, int, error)
}

type AdminRepo interface {
	Create(ctx context.Context, a *model.Admin) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Admin, error)
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
}

type ExamRepo interface {
	Create(ctx context.Context, e *model.Exam) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	List(ctx context.Context) ([]model.Exam, error)
	// ListAvailable returns active exams for the cohort whose window contains now.
	ListAvailable(ctx context.Context, department string, semester int, now time.Time) ([]model.Exam, error)
	Update(ctx context.Context, e *model.Exam) error
	// Delete removes the exam and everything hanging off it.
	Delete(ctx context.Context, id uuid.UUID) error
}

type QuestionRepo interface {
	// Create appends the question after the exam's last question.
	Create(ctx context.Context, q *model.Question) error
	CreateBatch(ctx context.Context, qs []*model.Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GradeFunc computes marks from the answer set seen under the finalize lock.
type GradeFunc func(answers []model.Answer) int

type ExamSessionRepo interface {
	// Create inserts s unless a session for the same student and exam already
	// exists, in which case it returns false and leaves s untouched.
	Create(ctx context.Context, s *model.ExamSession) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	GetByStudentAndExam(ctx context.Context, studentID, examID uuid.UUID) (*model.ExamSession, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.ExamSession, error)
	ListHistory(ctx context.Context, studentID uuid.UUID) ([]model.StudentExamHistory, error)

	// UpsertAnswer stores or replaces the answer for (session, question) while
	// the session is in progress.
	UpsertAnswer(ctx context.Context, a *model.Answer) error
	ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error)
	// ListPeerAnswers returns answers of every other session on the exam, keyed by session.
	ListPeerAnswers(ctx context.Context, examID, excludeSessionID uuid.UUID) (map[uuid.UUID][]model.Answer, error)

	// AppendFraudEvent records ev and adds its delta to the session's risk
	// score, clamped to [0,100], in one atomic step. It returns the new score.
	AppendFraudEvent(ctx context.Context, ev *model.FraudEvent) (int, error)
	ListFraudEvents(ctx context.Context, sessionID uuid.UUID) ([]model.FraudEvent, error)

	// Finalize moves an in-progress session to status, grading the answers
	// visible under the same lock. A terminal session yields ErrSessionFinalized.
	Finalize(ctx context.Context, sessionID uuid.UUID, status model.SessionStatus, grade GradeFunc) (*model.ExamSession, error)

	// ListOverdue returns in-progress sessions past their exam duration plus
	// grace, or past the exam window.
	ListOverdue(ctx context.Context, now time.Time, grace time.Duration) ([]uuid.UUID, error)
	// ListAtRisk returns in-progress sessions whose score reached minScore.
	ListAtRisk(ctx context.Context, minScore int) ([]uuid.UUID, error)
}

type MonitorRepo interface {
	// ListLive returns in-progress sessions, optionally limited to one exam.
	ListLive(ctx context.Context, examID *uuid.UUID) ([]model.LiveSession, error)
	ListFraudAlerts(ctx context.Context, minScore, limit int) ([]model.FraudAlert, error)
}

type CameraCheckRepo interface {
	Create(ctx context.Context, c *model.CameraCheck) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.CameraCheck, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.CameraCheck, error)
	// Complete records the result of a pending check whose session is still in_progress.
	Complete(ctx context.Context, id uuid.UUID, facesDetected int, notes string, at time.Time) (*model.CameraCheck, error)
}

type SecurityLogRepo interface {
	Create(ctx context.Context, l *model.SecurityLog) error
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.SecurityLog, error)
	// CountByStudentBetween counts logs with from <= timestamp <= to.
	CountByStudentBetween(ctx context.Context, studentID uuid.UUID, from, to time.Time) (int, error)
}

type IntegrityReportRepo interface {
	Upsert(ctx context.Context, r *model.IntegrityReport) error
	Get(ctx context.Context, sessionID uuid.UUID) (*model.IntegrityReport, error)
}

// Store bundles every repository a service layer needs.
type Store struct {
	Students         StudentRepo
	Admins           AdminRepo
	Exams            ExamRepo
	Questions        QuestionRepo
	Sessions         ExamSessionRepo
	Monitor          MonitorRepo
	CameraChecks     CameraCheckRepo
	SecurityLogs     SecurityLogRepo
	IntegrityReports IntegrityReportRepo
}
