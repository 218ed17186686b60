package model

import (
	"time"

	"github.com/google/uuid"
)

type CameraCheckStatus string

const (
	CameraCheckPending   CameraCheckStatus = "pending"
	CameraCheckCompleted CameraCheckStatus = "completed"
)

// CameraCheck is an admin-initiated request for the student device to run a
// camera capture and report how many faces it saw.
type CameraCheck struct {
	ID            uuid.UUID         `json:"id"`
	SessionID     uuid.UUID         `json:"session_id"`
	Status        CameraCheckStatus `json:"status"`
	RequestedBy   uuid.UUID         `json:"requested_by"`
	RequestedAt   time.Time         `json:"requested_at"`
	FacesDetected *int              `json:"faces_detected"`
	Notes         string            `json:"notes,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at"`
}

// CameraCheckResultRequest is the payload the student device sends back.
type CameraCheckResultRequest struct {
	FacesDetected int    `json:"faces_detected" binding:"min=0,max=50"`
	RiskDelta     int    `json:"risk_score_delta" binding:"min=0,max=100"`
	Notes         string `json:"notes" binding:"max=2000"`
}
