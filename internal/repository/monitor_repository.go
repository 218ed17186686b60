package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// MonitorRepository provides the read-side queries behind live monitoring
// and the fraud-alert board.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

// ListLive returns every in-progress session with its live counters.
func (r *MonitorRepository) ListLive(ctx context.Context, examID *uuid.UUID) ([]model.LiveSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.student_id, st.full_name, st.roll_number, s.exam_id, e.title, s.risk_score,
		        (SELECT COUNT(*) FROM fraud_events f WHERE f.session_id = s.id),
		        (SELECT COUNT(*) FROM session_answers a WHERE a.session_id = s.id),
		        (SELECT COUNT(*) FROM camera_checks c WHERE c.session_id = s.id AND c.status = 'pending'),
		        s.start_time
		 FROM exam_sessions s
		 JOIN students st ON st.id = s.student_id
		 JOIN exams e ON e.id = s.exam_id
		 WHERE s.status = 'in_progress' AND ($1::uuid IS NULL OR s.exam_id = $1)
		 ORDER BY s.risk_score DESC, s.start_time`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	live := make([]model.LiveSession, 0)
	for rows.Next() {
		var l model.LiveSession
		if err := rows.Scan(&l.SessionID, &l.StudentID, &l.StudentName, &l.RollNumber, &l.ExamID, &l.ExamTitle,
			&l.RiskScore, &l.FraudCount, &l.AnswersCount, &l.PendingCameraChecks, &l.StartTime); err != nil {
			return nil, err
		}
		live = append(live, l)
	}
	return live, rows.Err()
}

// ListFraudAlerts returns sessions at or above minScore, or with any fraud event.
func (r *MonitorRepository) ListFraudAlerts(ctx context.Context, minScore, limit int) ([]model.FraudAlert, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.student_id, st.full_name, st.roll_number, s.exam_id, e.title, s.risk_score, s.status,
		        (SELECT COUNT(*) FROM fraud_events f WHERE f.session_id = s.id) AS fraud_count,
		        s.start_time
		 FROM exam_sessions s
		 JOIN students st ON st.id = s.student_id
		 JOIN exams e ON e.id = s.exam_id
		 WHERE s.risk_score >= $1 OR EXISTS (SELECT 1 FROM fraud_events f WHERE f.session_id = s.id)
		 ORDER BY s.start_time DESC
		 LIMIT $2`, minScore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := make([]model.FraudAlert, 0)
	for rows.Next() {
		var a model.FraudAlert
		if err := rows.Scan(&a.SessionID, &a.StudentID, &a.StudentName, &a.RollNumber, &a.ExamID, &a.ExamTitle,
			&a.RiskScore, &a.Status, &a.FraudCount, &a.StartTime); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
