package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

const studentColumns = `id, full_name, roll_number, department, semester, password_hash,
	device_fingerprint, device_info, created_at, updated_at`

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

func scanStudent(row pgx.Row) (*model.Student, error) {
	s := &model.Student{}
	err := row.Scan(&s.ID, &s.FullName, &s.RollNumber, &s.Department, &s.Semester, &s.PasswordHash,
		&s.DeviceFingerprint, &s.DeviceInfo, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
}

// GetByRollNumber retrieves a student by their unique roll number.
func (r *StudentRepository) GetByRollNumber(ctx context.Context, rollNumber string) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE roll_number = $1`, rollNumber))
}

// List retrieves students ordered by roll number.
func (r *StudentRepository) List(ctx context.Context, limit, offset int) ([]model.Student, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY roll_number LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	students := make([]model.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		students = append(students, *s)
	}
	return students, total, rows.Err()
}

// Create inserts a new student. A taken roll number yields ErrDuplicate.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (full_name, roll_number, department, semester, password_hash, device_fingerprint, device_info)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		s.FullName, s.RollNumber, s.Department, s.Semester, s.PasswordHash, s.DeviceFingerprint, s.DeviceInfo,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return mapErr(err)
}
