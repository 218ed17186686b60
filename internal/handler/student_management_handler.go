package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// StudentManagementHandler handles admin views of student accounts.
type StudentManagementHandler struct {
	studentService *service.StudentService
}

// NewStudentManagementHandler creates a new StudentManagementHandler.
func NewStudentManagementHandler(studentService *service.StudentService) *StudentManagementHandler {
	return &StudentManagementHandler{studentService: studentService}
}

// ListStudents godoc
// GET /api/v1/admin/students?page=1&per_page=20
func (h *StudentManagementHandler) ListStudents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	students, pagination, err := h.studentService.ListStudents(c.Request.Context(), page, perPage)
	if err != nil {
		fail(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": students}, pagination)
}

// GetStudent godoc
// GET /api/v1/admin/students/:id
// Returns the student with their exam history and security log.
func (h *StudentManagementHandler) GetStudent(c *gin.Context) {
	studentID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	detail, err := h.studentService.GetDetail(c.Request.Context(), studentID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": detail})
}

// GetSecurityLogs godoc
// GET /api/v1/admin/students/:id/security-logs
func (h *StudentManagementHandler) GetSecurityLogs(c *gin.Context) {
	studentID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	logs, err := h.studentService.SecurityLogs(c.Request.Context(), studentID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"security_logs": logs})
}
