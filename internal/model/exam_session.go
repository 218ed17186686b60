package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusInProgress    SessionStatus = "in_progress"
	SessionStatusCompleted     SessionStatus = "completed"
	SessionStatusAutoSubmitted SessionStatus = "auto_submitted"
)

// Terminal reports whether no further mutation is accepted in this status.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusAutoSubmitted
}

// ExamSession represents a student's exam attempt.
type ExamSession struct {
	ID            uuid.UUID     `json:"id"`
	StudentID     uuid.UUID     `json:"student_id"`
	ExamID        uuid.UUID     `json:"exam_id"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       *time.Time    `json:"end_time"`
	Status        SessionStatus `json:"status"`
	RiskScore     int           `json:"risk_score"`
	MarksObtained *int          `json:"marks_obtained"`
	QuestionOrder []uuid.UUID   `json:"question_order"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Answer is one student's response to one question within a session.
type Answer struct {
	SessionID        uuid.UUID `json:"session_id"`
	QuestionID       uuid.UUID `json:"question_id"`
	Answer           string    `json:"answer"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// StartExamResult is returned by start: the session plus its projection.
type StartExamResult struct {
	Session         *ExamSession         `json:"session"`
	Exam            *Exam                `json:"exam"`
	Questions       []QuestionProjection `json:"questions"`
	ExistingAnswers []Answer             `json:"existing_answers"`
	Resumed         bool                 `json:"resumed"`
}

// SubmitAnswerRequest is the payload for saving a single answer.
type SubmitAnswerRequest struct {
	QuestionID       uuid.UUID `json:"question_id" binding:"required"`
	Answer           string    `json:"answer" binding:"max=20000"`
	TimeTakenSeconds int       `json:"time_taken_seconds" binding:"min=0"`
}

// SessionState is the student's view of a session and its saved answers.
type SessionState struct {
	Session *ExamSession `json:"session"`
	Answers []Answer     `json:"answers"`
}
