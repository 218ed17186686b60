package model

import (
	"time"

	"github.com/google/uuid"
)

type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "mcq"
	QuestionTypeShortAnswer QuestionType = "short_answer"
)

// Option is one choice of a multiple-choice question.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question represents a single exam question, answer key included.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	ExamID        uuid.UUID    `json:"exam_id"`
	QuestionText  string       `json:"question_text"`
	QuestionType  QuestionType `json:"question_type"`
	Options       []Option     `json:"options"`
	CorrectAnswer *string      `json:"correct_answer,omitempty"`
	Marks         int          `json:"marks"`
	ImageBase64   *string      `json:"image_base64,omitempty"`
	OrderNum      int          `json:"order_num"`
	CreatedAt     time.Time    `json:"created_at"`
}

// OptionProjection is the student-facing view of an option.
type OptionProjection struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionProjection is the student-facing view of a question. It never
// carries correctness flags or canonical answers.
type QuestionProjection struct {
	ID           uuid.UUID          `json:"id"`
	QuestionText string             `json:"question_text"`
	QuestionType QuestionType       `json:"question_type"`
	Options      []OptionProjection `json:"options,omitempty"`
	Marks        int                `json:"marks"`
	ImageBase64  *string            `json:"image_base64,omitempty"`
}

// OptionInput is an option as submitted by an admin. ID is generated when empty.
type OptionInput struct {
	ID        string `json:"id" binding:"omitempty,max=64"`
	Text      string `json:"text" binding:"required,max=2000"`
	IsCorrect bool   `json:"is_correct"`
}

// CreateQuestionRequest is the payload for adding a question to an exam.
type CreateQuestionRequest struct {
	QuestionText  string        `json:"question_text" binding:"required,min=1,max=5000"`
	QuestionType  QuestionType  `json:"question_type" binding:"required,max=32"`
	Options       []OptionInput `json:"options" binding:"omitempty,dive"`
	CorrectAnswer *string       `json:"correct_answer" binding:"omitempty,max=2000"`
	Marks         int           `json:"marks" binding:"omitempty,min=1"`
	ImageBase64   *string       `json:"image_base64"`
}

// BulkCreateQuestionsRequest carries parser output confirmed by an admin.
type BulkCreateQuestionsRequest struct {
	Questions []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}
