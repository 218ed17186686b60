package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// ExamHandler handles exam management endpoints.
type ExamHandler struct {
	examService *service.ExamService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

// ListExams godoc
// GET /api/v1/admin/exams
// Lists every exam with its question count.
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// CreateExam godoc
// POST /api/v1/admin/exams
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// GetExam godoc
// GET /api/v1/admin/exams/:id
// Returns the exam with its full question set, answer keys included.
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	detail, err := h.examService.GetDetail(c.Request.Context(), examID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": detail})
}

// UpdateExam godoc
// PUT /api/v1/admin/exams/:id
// Applies a partial update; omitted fields are left untouched.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), examID, req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/admin/exams/:id
// Removes the exam together with its questions, sessions and reports.
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), examID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
