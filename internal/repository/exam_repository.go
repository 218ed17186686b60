package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

const examSelect = `SELECT e.id, e.title, e.description, e.duration_minutes, e.total_marks, e.department,
	e.semester, e.start_time, e.end_time, e.is_active,
	(SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id) AS question_count,
	e.created_at, e.updated_at
	FROM exams e`

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row pgx.Row) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.DurationMinutes, &e.TotalMarks, &e.Department,
		&e.Semester, &e.StartTime, &e.EndTime, &e.IsActive, &e.QuestionCount, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

func (r *ExamRepository) list(ctx context.Context, query string, args ...any) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exams := make([]model.Exam, 0)
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, description, duration_minutes, total_marks, department, semester, start_time, end_time, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.Description, e.DurationMinutes, e.TotalMarks, e.Department, e.Semester, e.StartTime, e.EndTime, e.IsActive,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID retrieves an exam with its question count.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx, examSelect+` WHERE e.id = $1`, id))
}

// List retrieves all exams, newest first.
func (r *ExamRepository) List(ctx context.Context) ([]model.Exam, error) {
	return r.list(ctx, examSelect+` ORDER BY e.created_at DESC`)
}

// ListAvailable retrieves open exams for a department and semester.
func (r *ExamRepository) ListAvailable(ctx context.Context, department string, semester int, now time.Time) ([]model.Exam, error) {
	return r.list(ctx,
		examSelect+` WHERE e.department = $1 AND e.semester = $2 AND e.is_active
		 AND e.start_time <= $3 AND e.end_time > $3
		 ORDER BY e.start_time`,
		department, semester, now)
}

// Update writes every mutable field of e.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET title = $1, description = $2, duration_minutes = $3, total_marks = $4,
		 department = $5, semester = $6, start_time = $7, end_time = $8, is_active = $9, updated_at = NOW()
		 WHERE id = $10`,
		e.Title, e.Description, e.DurationMinutes, e.TotalMarks, e.Department, e.Semester, e.StartTime, e.EndTime, e.IsActive, e.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an exam. Questions, sessions and their children cascade.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
