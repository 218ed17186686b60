package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/database"
	"github.com/stemsi/exstem-proctor/internal/model"
)

const sessionColumns = `id, student_id, exam_id, start_time, end_time, status, risk_score, marks_obtained, question_order, created_at`

// ExamSessionRepository handles exam session data access. Every mutation
// of a session row happens under a row lock so concurrent requests for the
// same session serialize while different sessions never contend.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := row.Scan(&s.ID, &s.StudentID, &s.ExamID, &s.StartTime, &s.EndTime, &s.Status, &s.RiskScore,
		&s.MarksObtained, &s.QuestionOrder, &s.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

func (r *ExamSessionRepository) listSessions(ctx context.Context, query string, args ...any) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]model.ExamSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// Create inserts a new session. The unique (student_id, exam_id) index makes
// concurrent starts collapse onto one row.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) (bool, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (student_id, exam_id, status, risk_score, question_order)
		 VALUES ($1, $2, $3, 0, $4)
		 ON CONFLICT (student_id, exam_id) DO NOTHING
		 RETURNING id, start_time, created_at`,
		s.StudentID, s.ExamID, model.SessionStatusInProgress, s.QuestionOrder,
	).Scan(&s.ID, &s.StartTime, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.Status = model.SessionStatusInProgress
	s.RiskScore = 0
	return true, nil
}

func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id))
}

func (r *ExamSessionRepository) GetByStudentAndExam(ctx context.Context, studentID, examID uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE student_id = $1 AND exam_id = $2`,
		studentID, examID))
}

func (r *ExamSessionRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.ExamSession, error) {
	return r.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE student_id = $1 ORDER BY start_time DESC`,
		studentID)
}

// ListHistory joins a student's sessions with exam titles.
func (r *ExamSessionRepository) ListHistory(ctx context.Context, studentID uuid.UUID) ([]model.StudentExamHistory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.exam_id, e.title, s.status, s.risk_score, s.marks_obtained, e.total_marks, s.start_time, s.end_time
		 FROM exam_sessions s
		 JOIN exams e ON e.id = s.exam_id
		 WHERE s.student_id = $1
		 ORDER BY s.start_time DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]model.StudentExamHistory, 0)
	for rows.Next() {
		var h model.StudentExamHistory
		if err := rows.Scan(&h.SessionID, &h.ExamID, &h.ExamTitle, &h.Status, &h.RiskScore,
			&h.MarksObtained, &h.TotalMarks, &h.StartTime, &h.EndTime); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// lockStatus locks the session row and returns its status.
func lockStatus(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID, mode string) (model.SessionStatus, error) {
	var status model.SessionStatus
	err := tx.QueryRow(ctx, `SELECT status FROM exam_sessions WHERE id = $1 `+mode, sessionID).Scan(&status)
	if err != nil {
		return "", mapErr(err)
	}
	return status, nil
}

// UpsertAnswer holds a share lock on the session so a concurrent finalize
// either sees this answer or rejects it.
func (r *ExamSessionRepository) UpsertAnswer(ctx context.Context, a *model.Answer) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		status, err := lockStatus(ctx, tx, a.SessionID, "FOR SHARE")
		if err != nil {
			return err
		}
		if status != model.SessionStatusInProgress {
			return ErrSessionNotActive
		}

		return tx.QueryRow(ctx,
			`INSERT INTO session_answers (session_id, question_id, answer, time_taken_seconds, submitted_at)
			 VALUES ($1, $2, $3, $4, NOW())
			 ON CONFLICT (session_id, question_id) DO UPDATE
			 SET answer = EXCLUDED.answer,
			     time_taken_seconds = EXCLUDED.time_taken_seconds,
			     submitted_at = EXCLUDED.submitted_at
			 RETURNING submitted_at`,
			a.SessionID, a.QuestionID, a.Answer, a.TimeTakenSeconds,
		).Scan(&a.SubmittedAt)
	})
}

func listAnswers(ctx context.Context, db querier, sessionID uuid.UUID) ([]model.Answer, error) {
	rows, err := db.Query(ctx,
		`SELECT session_id, question_id, answer, time_taken_seconds, submitted_at
		 FROM session_answers WHERE session_id = $1 ORDER BY submitted_at, question_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make([]model.Answer, 0)
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.Answer, &a.TimeTakenSeconds, &a.SubmittedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (r *ExamSessionRepository) ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	return listAnswers(ctx, r.pool, sessionID)
}

func (r *ExamSessionRepository) ListPeerAnswers(ctx context.Context, examID, excludeSessionID uuid.UUID) (map[uuid.UUID][]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.session_id, a.question_id, a.answer, a.time_taken_seconds, a.submitted_at
		 FROM session_answers a
		 JOIN exam_sessions s ON s.id = a.session_id
		 WHERE s.exam_id = $1 AND s.id <> $2`, examID, excludeSessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	peers := make(map[uuid.UUID][]model.Answer)
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.Answer, &a.TimeTakenSeconds, &a.SubmittedAt); err != nil {
			return nil, err
		}
		peers[a.SessionID] = append(peers[a.SessionID], a)
	}
	return peers, rows.Err()
}

// AppendFraudEvent adds the delta with LEAST/GREATEST in the UPDATE itself so
// the clamp is applied to the stored value, never to a stale read.
func (r *ExamSessionRepository) AppendFraudEvent(ctx context.Context, ev *model.FraudEvent) (int, error) {
	var score int
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		status, err := lockStatus(ctx, tx, ev.SessionID, "FOR UPDATE")
		if err != nil {
			return err
		}
		if status != model.SessionStatusInProgress {
			return ErrSessionNotActive
		}

		if err := tx.QueryRow(ctx,
			`UPDATE exam_sessions SET risk_score = LEAST(100, GREATEST(0, risk_score + $2))
			 WHERE id = $1 RETURNING risk_score`,
			ev.SessionID, ev.RiskDelta,
		).Scan(&score); err != nil {
			return err
		}

		return tx.QueryRow(ctx,
			`INSERT INTO fraud_events (session_id, fraud_type, details, risk_delta, metadata)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, occurred_at`,
			ev.SessionID, ev.Type, ev.Details, ev.RiskDelta, ev.Metadata,
		).Scan(&ev.ID, &ev.Timestamp)
	})
	if err != nil {
		return 0, err
	}
	return score, nil
}

// ListFraudEvents returns events in insertion order.
func (r *ExamSessionRepository) ListFraudEvents(ctx context.Context, sessionID uuid.UUID) ([]model.FraudEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, fraud_type, details, risk_delta, metadata, occurred_at
		 FROM fraud_events WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.FraudEvent, 0)
	for rows.Next() {
		var e model.FraudEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Type, &e.Details, &e.RiskDelta, &e.Metadata, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Finalize grades and closes the session in one transaction. The row lock
// makes the first finalize win; later callers get ErrSessionFinalized.
func (r *ExamSessionRepository) Finalize(ctx context.Context, sessionID uuid.UUID, status model.SessionStatus, grade GradeFunc) (*model.ExamSession, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("finalize to non-terminal status %q", status)
	}

	var out *model.ExamSession
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := lockStatus(ctx, tx, sessionID, "FOR UPDATE")
		if err != nil {
			return err
		}
		if current != model.SessionStatusInProgress {
			return ErrSessionFinalized
		}

		answers, err := listAnswers(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		marks := grade(answers)

		out, err = scanSession(tx.QueryRow(ctx,
			`UPDATE exam_sessions SET status = $2, end_time = NOW(), marks_obtained = $3
			 WHERE id = $1 RETURNING `+sessionColumns,
			sessionID, status, marks))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ExamSessionRepository) listIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ExamSessionRepository) ListOverdue(ctx context.Context, now time.Time, grace time.Duration) ([]uuid.UUID, error) {
	return r.listIDs(ctx,
		`SELECT s.id FROM exam_sessions s
		 JOIN exams e ON e.id = s.exam_id
		 WHERE s.status = 'in_progress'
		   AND (s.start_time + make_interval(mins => e.duration_minutes) + make_interval(secs => $2) < $1
		        OR e.end_time + make_interval(secs => $2) < $1)`,
		now, grace.Seconds())
}

func (r *ExamSessionRepository) ListAtRisk(ctx context.Context, minScore int) ([]uuid.UUID, error) {
	return r.listIDs(ctx,
		`SELECT id FROM exam_sessions WHERE status = 'in_progress' AND risk_score >= $1`, minScore)
}
