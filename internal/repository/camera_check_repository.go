package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

const cameraCheckColumns = `id, session_id, status, requested_by, requested_at, faces_detected, notes, completed_at`

// CameraCheckRepository handles camera check requests and results.
type CameraCheckRepository struct {
	pool *pgxpool.Pool
}

func NewCameraCheckRepository(pool *pgxpool.Pool) *CameraCheckRepository {
	return &CameraCheckRepository{pool: pool}
}

func scanCameraCheck(row pgx.Row) (*model.CameraCheck, error) {
	c := &model.CameraCheck{}
	err := row.Scan(&c.ID, &c.SessionID, &c.Status, &c.RequestedBy, &c.RequestedAt, &c.FacesDetected, &c.Notes, &c.CompletedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

func (r *CameraCheckRepository) Create(ctx context.Context, c *model.CameraCheck) error {
	c.Status = model.CameraCheckPending
	return r.pool.QueryRow(ctx,
		`INSERT INTO camera_checks (session_id, status, requested_by)
		 VALUES ($1, $2, $3)
		 RETURNING id, requested_at`,
		c.SessionID, c.Status, c.RequestedBy,
	).Scan(&c.ID, &c.RequestedAt)
}

func (r *CameraCheckRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CameraCheck, error) {
	return scanCameraCheck(r.pool.QueryRow(ctx, `SELECT `+cameraCheckColumns+` FROM camera_checks WHERE id = $1`, id))
}

func (r *CameraCheckRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.CameraCheck, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+cameraCheckColumns+` FROM camera_checks WHERE session_id = $1 ORDER BY requested_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	checks := make([]model.CameraCheck, 0)
	for rows.Next() {
		c, err := scanCameraCheck(rows)
		if err != nil {
			return nil, err
		}
		checks = append(checks, *c)
	}
	return checks, rows.Err()
}

// Complete only transitions pending checks of an in_progress session.
// A finished check yields ErrCheckNotPending, a finished session
// ErrSessionNotActive.
func (r *CameraCheckRepository) Complete(ctx context.Context, id uuid.UUID, facesDetected int, notes string, at time.Time) (*model.CameraCheck, error) {
	c, err := scanCameraCheck(r.pool.QueryRow(ctx,
		`UPDATE camera_checks SET status = 'completed', faces_detected = $2, notes = $3, completed_at = $4
		 WHERE id = $1 AND status = 'pending'
		   AND EXISTS (SELECT 1 FROM exam_sessions s WHERE s.id = camera_checks.session_id AND s.status = 'in_progress')
		 RETURNING `+cameraCheckColumns,
		id, facesDetected, notes, at))
	if errors.Is(err, ErrNotFound) {
		existing, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if existing.Status != model.CameraCheckPending {
			return nil, ErrCheckNotPending
		}
		return nil, ErrSessionNotActive
	}
	return c, err
}
