package model

import (
	"time"

	"github.com/google/uuid"
)

// LiveSession is one in-progress session on the live monitoring board.
type LiveSession struct {
	SessionID           uuid.UUID `json:"session_id"`
	StudentID           uuid.UUID `json:"student_id"`
	StudentName         string    `json:"student_name"`
	RollNumber          string    `json:"roll_number"`
	ExamID              uuid.UUID `json:"exam_id"`
	ExamTitle           string    `json:"exam_title"`
	RiskScore           int       `json:"risk_score"`
	FraudCount          int       `json:"fraud_count"`
	AnswersCount        int       `json:"answers_count"`
	PendingCameraChecks int       `json:"pending_camera_checks"`
	StartTime           time.Time `json:"start_time"`
}

// LiveSnapshot is the payload of the live monitoring endpoint.
type LiveSnapshot struct {
	ActiveSessions      []LiveSession `json:"active_sessions"`
	TotalActive         int           `json:"total_active"`
	HighRisk            int           `json:"high_risk"`
	PendingCameraChecks int           `json:"pending_camera_checks"`
	GeneratedAt         time.Time     `json:"generated_at"`
}

// MonitorEventType tags messages pushed to the live monitor channel.
type MonitorEventType string

const (
	MonitorSessionStarted   MonitorEventType = "session_started"
	MonitorAnswerSaved      MonitorEventType = "answer_saved"
	MonitorFraudRecorded    MonitorEventType = "fraud_recorded"
	MonitorSessionFinalized MonitorEventType = "session_finalized"
	MonitorCameraRequested  MonitorEventType = "camera_check_requested"
	MonitorCameraCompleted  MonitorEventType = "camera_check_completed"
)

// MonitorEvent is published for every state change an admin may want to watch.
type MonitorEvent struct {
	Type      MonitorEventType `json:"type"`
	ExamID    uuid.UUID        `json:"exam_id"`
	SessionID uuid.UUID        `json:"session_id"`
	StudentID uuid.UUID        `json:"student_id"`
	Status    SessionStatus    `json:"status,omitempty"`
	RiskScore int              `json:"risk_score"`
	FraudType string           `json:"fraud_type,omitempty"`
	Marks     *int             `json:"marks,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
