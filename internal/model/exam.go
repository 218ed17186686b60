package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents an exam entity.
type Exam struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalMarks      int       `json:"total_marks"`
	Department      string    `json:"department"`
	Semester        int       `json:"semester"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	IsActive        bool      `json:"is_active"`
	QuestionCount   int       `json:"question_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OpenAt reports whether the exam window contains t and the exam is active.
func (e *Exam) OpenAt(t time.Time) bool {
	return e.IsActive && !t.Before(e.StartTime) && t.Before(e.EndTime)
}

// EligibleFor reports whether a student's department and semester match the exam.
func (e *Exam) EligibleFor(department string, semester int) bool {
	return e.Department == department && e.Semester == semester
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title           string    `json:"title" binding:"required,min=3,max=255"`
	Description     string    `json:"description" binding:"max=5000"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=1,max=600"`
	TotalMarks      int       `json:"total_marks" binding:"required,min=1"`
	Department      string    `json:"department" binding:"required,max=100"`
	Semester        int       `json:"semester" binding:"required,min=1,max=12"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	EndTime         time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
	IsActive        *bool     `json:"is_active"`
}

// UpdateExamRequest is the payload for partially updating an exam.
type UpdateExamRequest struct {
	Title           *string    `json:"title" binding:"omitempty,min=3,max=255"`
	Description     *string    `json:"description" binding:"omitempty,max=5000"`
	DurationMinutes *int       `json:"duration_minutes" binding:"omitempty,min=1,max=600"`
	TotalMarks      *int       `json:"total_marks" binding:"omitempty,min=1"`
	Department      *string    `json:"department" binding:"omitempty,max=100"`
	Semester        *int       `json:"semester" binding:"omitempty,min=1,max=12"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	IsActive        *bool      `json:"is_active"`
}

// Apply copies the non-nil fields of the request onto e.
func (r *UpdateExamRequest) Apply(e *Exam) {
	if r.Title != nil {
		e.Title = *r.Title
	}
	if r.Description != nil {
		e.Description = *r.Description
	}
	if r.DurationMinutes != nil {
		e.DurationMinutes = *r.DurationMinutes
	}
	if r.TotalMarks != nil {
		e.TotalMarks = *r.TotalMarks
	}
	if r.Department != nil {
		e.Department = *r.Department
	}
	if r.Semester != nil {
		e.Semester = *r.Semester
	}
	if r.StartTime != nil {
		e.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		e.EndTime = *r.EndTime
	}
	if r.IsActive != nil {
		e.IsActive = *r.IsActive
	}
}

// AvailableExam is an exam as listed for a student, with attempt state.
type AvailableExam struct {
	Exam
	Attempted     bool           `json:"attempted"`
	SessionStatus *SessionStatus `json:"session_status"`
}

// ExamDetail is the admin view of an exam with its full question set.
type ExamDetail struct {
	Exam
	Questions []Question `json:"questions"`
}
