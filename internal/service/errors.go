package service

import (
	"errors"

	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stemsi/exstem-proctor/internal/scorer"
)

// Storage outcomes surface unchanged so callers match one sentinel whichever
// layer produced it.
var (
	ErrNotFound                = repository.ErrNotFound
	ErrDuplicate               = repository.ErrDuplicate
	ErrNoActiveSession         = repository.ErrSessionNotActive
	ErrSessionAlreadyFinalized = repository.ErrSessionFinalized
	ErrCheckNotPending         = repository.ErrCheckNotPending
)

// ErrExternalServiceUnavailable is absorbed by report building and answer analysis.
var ErrExternalServiceUnavailable = scorer.ErrUnavailable

var (
	ErrForbidden          = errors.New("access to this resource is forbidden")
	ErrAlreadyCompleted   = errors.New("exam already completed")
	ErrExamNotAvailable   = errors.New("exam is not available")
	ErrInvalidRiskDelta   = errors.New("risk delta must not be negative")
	ErrInvalidQuestion    = errors.New("invalid question")
	ErrInvalidExamWindow  = errors.New("exam end time must be after start time")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrTokenExpired       = errors.New("token expired")
	ErrSessionInvalidated = errors.New("login session invalidated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDeviceMismatch     = errors.New("device does not match the registered device")
	ErrRegistrationClosed = errors.New("admin registration is disabled")
)
