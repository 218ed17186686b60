package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// StudentPortalHandler handles student-facing endpoints: exam listing, taking and camera checks.
type StudentPortalHandler struct {
	examService    *service.ExamService
	sessionService *service.ExamSessionService
	riskService    *service.RiskService
	cameraService  *service.CameraCheckService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	examService *service.ExamService,
	sessionService *service.ExamSessionService,
	riskService *service.RiskService,
	cameraService *service.CameraCheckService,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		examService:    examService,
		sessionService: sessionService,
		riskService:    riskService,
		cameraService:  cameraService,
	}
}

// student pulls the student principal set by the student route group.
func student(c *gin.Context) (model.StudentPrincipal, bool) {
	p, ok := middleware.GetStudent(c)
	if !ok {
		response.Fail(c, http.StatusForbidden, response.ErrStudentAccessOnly)
	}
	return p, ok
}

// ListAvailableExams godoc
// GET /api/v1/student/exams
// Returns the active exams of the student's department and semester whose
// window is open, flagged with any previous attempt.
func (h *StudentPortalHandler) ListAvailableExams(c *gin.Context) {
	p, ok := student(c)
	if !ok {
		return
	}

	exams, err := h.examService.ListAvailable(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}

	if exams == nil {
		exams = []model.AvailableExam{}
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// StartExam godoc
// POST /api/v1/student/exams/:exam_id/start
// Creates the session, or resumes the one in progress (idempotent).
// Questions are returned in this student's order without answer keys.
func (h *StudentPortalHandler) StartExam(c *gin.Context) {
	p, ok := student(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	result, err := h.sessionService.Start(c.Request.Context(), p, examID)
	if err != nil {
		fail(c, err)
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	response.Success(c, status, result)
}

// SubmitAnswer godoc
// POST /api/v1/student/exams/:exam_id/answers
// Saves or replaces one answer. Nothing is graded here.
func (h *StudentPortalHandler) SubmitAnswer(c *gin.Context) {
	p, ok := student(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	answer, err := h.sessionService.SubmitAnswer(c.Request.Context(), p, examID, req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answer": answer})
}

// SubmitExam godoc
// POST /api/v1/student/exams/:exam_id/submit
// Grades and closes the session. Submitting an already closed session
// returns it unchanged.
func (h *StudentPortalHandler) SubmitExam(c *gin.Context) {
	p, ok := student(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	session, err := h.sessionService.Submit(c.Request.Context(), p, examID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session":        session,
		"status":         session.Status,
		"marks_obtained": session.MarksObtained,
	})
}

// GetExamState godoc
// GET /api/v1/student/exams/:exam_id/state
func (h *StudentPortalHandler) GetExamState(c *gin.Context) {
	p, ok := student(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	state, err := h.sessionService.State(c.Request.Context(), p, examID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// ReportFraudEvent godoc
// POST /api/v1/student/fraud-events
// Appends a fraud signal to the caller's own session and returns the new
// risk score. Reaching the auto-submit threshold closes the session.
func (h *StudentPortalHandler) ReportFraudEvent(c *gin.Context) {
	p, ok := student(c)
	if !ok {
		return
	}

	var req model.FraudEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.riskService.RecordFraudEvent(c.Request.Context(), p, req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// ListPendingCameraChecks godoc
// GET /api/v1/student/exams/:exam_id/camera-checks
func (h *StudentPortalHandler) ListPendingCameraChecks(c *gin.Context) {
	p, ok := student(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	checks, err := h.cameraService.ListPending(c.Request.Context(), p, examID)
	if err != nil {
		fail(c, err)
		return
	}

	if checks == nil {
		checks = []model.CameraCheck{}
	}

	response.Success(c, http.StatusOK, gin.H{"camera_checks": checks})
}

// CompleteCameraCheck godoc
// POST /api/v1/student/camera-checks/:id/result
// Records what the device camera saw. More than one face raises risk.
func (h *StudentPortalHandler) CompleteCameraCheck(c *gin.Context) {
	p, ok := student(c)
	if !ok {
		return
	}
	checkID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req model.CameraCheckResultRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.cameraService.Complete(c.Request.Context(), p, checkID, req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
