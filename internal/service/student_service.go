package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stemsi/exstem-proctor/internal/response"
)

// StudentDetail is the admin view of a student: account, attempts and
// security incidents.
type StudentDetail struct {
	*model.Student
	ExamHistory  []model.StudentExamHistory `json:"exam_history"`
	SecurityLogs []model.SecurityLog        `json:"security_logs"`
}

// StudentService handles student management for admins.
type StudentService struct {
	students     repository.StudentRepo
	sessions     repository.ExamSessionRepo
	securityLogs repository.SecurityLogRepo
}

// NewStudentService creates a new StudentService.
func NewStudentService(store *repository.Store) *StudentService {
	return &StudentService{
		students:     store.Students,
		sessions:     store.Sessions,
		securityLogs: store.SecurityLogs,
	}
}

// ListStudents retrieves students with pagination.
func (s *StudentService) ListStudents(ctx context.Context, page, perPage int) ([]model.Student, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	students, total, err := s.students.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	return students, response.NewPagination(page, perPage, total), nil
}

// GetDetail returns a student with their exam history and security log.
func (s *StudentService) GetDetail(ctx context.Context, id uuid.UUID) (*StudentDetail, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.sessions.ListHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	logs, err := s.securityLogs.ListByStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list security logs: %w", err)
	}
	return &StudentDetail{Student: student, ExamHistory: history, SecurityLogs: logs}, nil
}

// SecurityLogs returns the security incidents of one student.
func (s *StudentService) SecurityLogs(ctx context.Context, id uuid.UUID) ([]model.SecurityLog, error) {
	if _, err := s.students.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.securityLogs.ListByStudent(ctx, id)
}
