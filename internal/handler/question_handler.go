package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// QuestionHandler handles question management under an exam.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// ListQuestions godoc
// GET /api/v1/admin/exams/:id/questions
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	questions, err := h.questionService.ListByExam(c.Request.Context(), examID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// AddQuestion godoc
// POST /api/v1/admin/exams/:id/questions
func (h *QuestionHandler) AddQuestion(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), examID, req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// BulkAddQuestions godoc
// POST /api/v1/admin/exams/:id/questions/bulk
// Stores a batch of already-parsed questions. The batch is all or nothing.
func (h *QuestionHandler) BulkAddQuestions(c *gin.Context) {
	examID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req model.BulkCreateQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.questionService.BulkCreate(c.Request.Context(), examID, req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"questions": questions,
		"count":     len(questions),
	})
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	questionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), questionID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
