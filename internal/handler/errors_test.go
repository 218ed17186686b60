package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   response.ErrCode
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
		{"wrapped forbidden", fmt.Errorf("record fraud: %w", service.ErrForbidden), http.StatusForbidden, response.ErrForbidden},
		{"finished attempt", service.ErrAlreadyCompleted, http.StatusConflict, response.ErrAlreadyCompleted},
		{"closed session", service.ErrNoActiveSession, http.StatusConflict, response.ErrNoActiveSession},
		{"bad question", fmt.Errorf("question 2: %w", service.ErrInvalidQuestion), http.StatusBadRequest, response.ErrInvalidQuestion},
		{"expired token", service.ErrTokenExpired, http.StatusUnauthorized, response.ErrTokenExpired},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := mapError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
