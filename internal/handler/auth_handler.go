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

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// StudentRegister godoc
// POST /api/v1/auth/student/register
// Creates a student account bound to the registering device and returns a JWT.
func (h *AuthHandler) StudentRegister(c *gin.Context) {
	var req model.StudentRegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.authService.RegisterStudent(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// StudentLogin godoc
// POST /api/v1/auth/student/login
// Validates roll number + password and the device fingerprint. A login from
// another device is rejected and written to the security log.
func (h *AuthHandler) StudentLogin(c *gin.Context) {
	var req model.StudentLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.authService.LoginStudent(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// AdminRegister godoc
// POST /api/v1/auth/admin/register
func (h *AuthHandler) AdminRegister(c *gin.Context) {
	var req model.AdminRegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.authService.RegisterAdmin(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.authService.LoginAdmin(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Me godoc
// GET /api/v1/auth/me
// Returns the account of the current principal, student or admin.
func (h *AuthHandler) Me(c *gin.Context) {
	p := middleware.GetPrincipal(c)
	if p == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	account, err := h.authService.Me(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"role":    p.Role(),
		"account": account,
	})
}

// StudentLogout godoc
// POST /api/v1/auth/student/logout
// Drops the active login so the current token stops working.
func (h *AuthHandler) StudentLogout(c *gin.Context) {
	student, ok := middleware.GetStudent(c)
	if !ok {
		response.Fail(c, http.StatusForbidden, response.ErrStudentAccessOnly)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), student.ID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
