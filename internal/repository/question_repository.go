package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/database"
	"github.com/stemsi/exstem-proctor/internal/model"
)

const questionColumns = `id, exam_id, question_text, question_type, options, correct_answer, marks, image_base64, order_num, created_at`

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	q := &model.Question{}
	err := row.Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.QuestionType, &q.Options, &q.CorrectAnswer,
		&q.Marks, &q.ImageBase64, &q.OrderNum, &q.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if q.Options == nil {
		q.Options = []model.Option{}
	}
	return q, nil
}

func insertQuestion(ctx context.Context, db querier, q *model.Question) error {
	if q.Options == nil {
		q.Options = []model.Option{}
	}
	return db.QueryRow(ctx,
		`INSERT INTO questions (exam_id, question_text, question_type, options, correct_answer, marks, image_base64, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7,
		         COALESCE((SELECT MAX(order_num) + 1 FROM questions WHERE exam_id = $1), 0))
		 RETURNING id, order_num, created_at`,
		q.ExamID, q.QuestionText, q.QuestionType, q.Options, q.CorrectAnswer, q.Marks, q.ImageBase64,
	).Scan(&q.ID, &q.OrderNum, &q.CreatedAt)
}

// Create appends a question to its exam.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return insertQuestion(ctx, r.pool, q)
}

// CreateBatch inserts all questions in one transaction, preserving slice order.
func (r *QuestionRepository) CreateBatch(ctx context.Context, qs []*model.Question) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for i, q := range qs {
			if err := insertQuestion(ctx, tx, q); err != nil {
				return fmt.Errorf("insert question %d: %w", i, err)
			}
		}
		return nil
	})
}

// GetByID retrieves a question with its answer key.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// ListByExam retrieves an exam's questions in authoring order.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE exam_id = $1 ORDER BY order_num, created_at`,
		examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]model.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// Delete removes a question. Saved answers referencing it are kept and
// ignored by grading.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
