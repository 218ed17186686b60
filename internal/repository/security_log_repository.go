package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// SecurityLogRepository stores account-level security events.
type SecurityLogRepository struct {
	pool *pgxpool.Pool
}

func NewSecurityLogRepository(pool *pgxpool.Pool) *SecurityLogRepository {
	return &SecurityLogRepository{pool: pool}
}

func (r *SecurityLogRepository) Create(ctx context.Context, l *model.SecurityLog) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO security_logs (student_id, roll_number, event_type, expected_fingerprint, actual_fingerprint, device_info)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, logged_at`,
		l.StudentID, l.RollNumber, l.EventType, l.ExpectedFingerprint, l.ActualFingerprint, l.DeviceInfo,
	).Scan(&l.ID, &l.Timestamp)
}

func (r *SecurityLogRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.SecurityLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, roll_number, event_type, expected_fingerprint, actual_fingerprint, device_info, logged_at
		 FROM security_logs WHERE student_id = $1 ORDER BY logged_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]model.SecurityLog, 0)
	for rows.Next() {
		var l model.SecurityLog
		if err := rows.Scan(&l.ID, &l.StudentID, &l.RollNumber, &l.EventType, &l.ExpectedFingerprint,
			&l.ActualFingerprint, &l.DeviceInfo, &l.Timestamp); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *SecurityLogRepository) CountByStudentBetween(ctx context.Context, studentID uuid.UUID, from, to time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM security_logs WHERE student_id = $1 AND logged_at BETWEEN $2 AND $3`,
		studentID, from, to).Scan(&n)
	return n, err
}
