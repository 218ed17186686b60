package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// errorMapping pairs a service sentinel with its HTTP surface.
type errorMapping struct {
	err    error
	status int
	code   response.ErrCode
}

var serviceErrors = []errorMapping{
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrForbidden, http.StatusForbidden, response.ErrForbidden},
	{service.ErrDuplicate, http.StatusConflict, response.ErrConflict},
	{service.ErrNoActiveSession, http.StatusConflict, response.ErrNoActiveSession},
	{service.ErrAlreadyCompleted, http.StatusConflict, response.ErrAlreadyCompleted},
	{service.ErrSessionAlreadyFinalized, http.StatusConflict, response.ErrSessionFinalized},
	{service.ErrCheckNotPending, http.StatusConflict, response.ErrCameraCheckClosed},
	{service.ErrExamNotAvailable, http.StatusForbidden, response.ErrExamNotAvailable},
	{service.ErrDeviceMismatch, http.StatusForbidden, response.ErrDeviceMismatch},
	{service.ErrRegistrationClosed, http.StatusForbidden, response.ErrRegistrationDisabled},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrTokenExpired, http.StatusUnauthorized, response.ErrTokenExpired},
	{service.ErrUnauthenticated, http.StatusUnauthorized, response.ErrTokenInvalid},
	{service.ErrSessionInvalidated, http.StatusUnauthorized, response.ErrSessionInvalidated},
	{service.ErrInvalidRiskDelta, http.StatusBadRequest, response.ErrInvalidRiskDelta},
	{service.ErrInvalidQuestion, http.StatusBadRequest, response.ErrInvalidQuestion},
	{service.ErrInvalidExamWindow, http.StatusBadRequest, response.ErrInvalidExamTime},
	{service.ErrExternalServiceUnavailable, http.StatusServiceUnavailable, response.ErrScorerUnavailable},
}

// mapError resolves a service error to a status and code. Anything
// unrecognised is an internal error.
func mapError(err error) (int, response.ErrCode) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// fail writes the envelope for a service error.
func fail(c *gin.Context, err error) {
	status, code := mapError(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.Fail(c, status, code)
}

// paramUUID parses a path parameter, writing a 400 when it is malformed.
func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional query parameter. A missing value yields nil.
func queryUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}
	return &id, true
}
