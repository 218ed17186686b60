package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// AdminRepository handles admin data access.
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new AdminRepository.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) get(ctx context.Context, where string, arg any) (*model.Admin, error) {
	a := &model.Admin{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, full_name, email, password_hash, created_at, updated_at FROM admins WHERE `+where, arg,
	).Scan(&a.ID, &a.FullName, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

func (r *AdminRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Admin, error) {
	return r.get(ctx, "id = $1", id)
}

// GetByEmail matches case-insensitively.
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return r.get(ctx, "LOWER(email) = LOWER($1)", email)
}

// Create inserts a new admin. A taken email yields ErrDuplicate.
func (r *AdminRepository) Create(ctx context.Context, a *model.Admin) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO admins (full_name, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		a.FullName, a.Email, a.PasswordHash,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return mapErr(err)
}
