package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// IntegrityReportRepository caches built reports, one row per session.
type IntegrityReportRepository struct {
	pool *pgxpool.Pool
}

func NewIntegrityReportRepository(pool *pgxpool.Pool) *IntegrityReportRepository {
	return &IntegrityReportRepository{pool: pool}
}

// Upsert overwrites any previous report for the session.
func (r *IntegrityReportRepository) Upsert(ctx context.Context, rep *model.IntegrityReport) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO integrity_reports (session_id, report, generated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (session_id) DO UPDATE SET report = EXCLUDED.report, generated_at = EXCLUDED.generated_at`,
		rep.SessionID, rep, rep.GeneratedAt)
	return err
}

func (r *IntegrityReportRepository) Get(ctx context.Context, sessionID uuid.UUID) (*model.IntegrityReport, error) {
	rep := &model.IntegrityReport{}
	err := r.pool.QueryRow(ctx, `SELECT report FROM integrity_reports WHERE session_id = $1`, sessionID).Scan(rep)
	if err != nil {
		return nil, mapErr(err)
	}
	return rep, nil
}

// NewPostgresStore wires every pgx repository into a Store.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Students:         NewStudentRepository(pool),
		Admins:           NewAdminRepository(pool),
		Exams:            NewExamRepository(pool),
		Questions:        NewQuestionRepository(pool),
		Sessions:         NewExamSessionRepository(pool),
		Monitor:          NewMonitorRepository(pool),
		CameraChecks:     NewCameraCheckRepository(pool),
		SecurityLogs:     NewSecurityLogRepository(pool),
		IntegrityReports: NewIntegrityReportRepository(pool),
	}
}
