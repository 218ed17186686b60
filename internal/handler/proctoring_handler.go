package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// ProctoringHandler serves the admin review of individual sessions: camera
// checks, integrity reports and answer analysis.
type ProctoringHandler struct {
	sessionService   *service.ExamSessionService
	cameraService    *service.CameraCheckService
	integrityService *service.IntegrityService
	analysisService  *service.AnalysisService
}

// NewProctoringHandler creates a new ProctoringHandler.
func NewProctoringHandler(
	sessionService *service.ExamSessionService,
	cameraService *service.CameraCheckService,
	integrityService *service.IntegrityService,
	analysisService *service.AnalysisService,
) *ProctoringHandler {
	return &ProctoringHandler{
		sessionService:   sessionService,
		cameraService:    cameraService,
		integrityService: integrityService,
		analysisService:  analysisService,
	}
}

// GetSession godoc
// GET /api/v1/admin/sessions/:id
func (h *ProctoringHandler) GetSession(c *gin.Context) {
	sessionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	session, err := h.sessionService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// RequestCameraCheck godoc
// POST /api/v1/admin/sessions/:id/camera-checks
// Asks the student's device for a camera capture. Only in-progress sessions
// can be checked.
func (h *ProctoringHandler) RequestCameraCheck(c *gin.Context) {
	admin, ok := middleware.GetAdmin(c)
	if !ok {
		response.Fail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
		return
	}
	sessionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	check, err := h.cameraService.Request(c.Request.Context(), admin, sessionID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"camera_check": check})
}

// ListCameraChecks godoc
// GET /api/v1/admin/sessions/:id/camera-checks
func (h *ProctoringHandler) ListCameraChecks(c *gin.Context) {
	sessionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	checks, err := h.cameraService.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		fail(c, err)
		return
	}

	if checks == nil {
		checks = []model.CameraCheck{}
	}

	response.Success(c, http.StatusOK, gin.H{"camera_checks": checks})
}

// GetIntegrityReport godoc
// GET /api/v1/admin/sessions/:id/integrity-report?refresh=true
// Returns the stored report, building it first when missing or when
// refresh is requested.
func (h *ProctoringHandler) GetIntegrityReport(c *gin.Context) {
	sessionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))

	report, err := h.integrityService.Get(c.Request.Context(), sessionID, refresh)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": report})
}

// AnalyzeAnswer godoc
// POST /api/v1/admin/analyze-answer
// Asks the external scorer whether an answer looks machine generated.
func (h *ProctoringHandler) AnalyzeAnswer(c *gin.Context) {
	var req model.AnswerAnalysisRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	verdict, err := h.analysisService.Analyze(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, verdict)
}
