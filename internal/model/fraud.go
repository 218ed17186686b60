package model

import (
	"time"

	"github.com/google/uuid"
)

// Well-known fraud event types reported by the exam client.
const (
	FraudTypeAppBackgrounded   = "app_backgrounded"
	FraudTypeWindowBlur        = "window_blur"
	FraudTypeTabSwitch         = "tab_switch"
	FraudTypeFocusLost         = "focus_lost"
	FraudTypeDeviceChange      = "device_change"
	FraudTypeBluetoothDetected = "bluetooth_detected"
	FraudTypeHotspotDetected   = "hotspot_detected"
	FraudTypeOrientationChange = "orientation_change"
	FraudTypeCopyPaste         = "copy_paste"
	FraudTypeMultipleFaces     = "multiple_faces"
	FraudTypeCameraCheck       = "camera_check"
)

// FraudEvent is an immutable record appended to a session.
type FraudEvent struct {
	ID        uuid.UUID      `json:"id"`
	SessionID uuid.UUID      `json:"session_id"`
	Type      string         `json:"fraud_type"`
	Details   string         `json:"details"`
	RiskDelta int            `json:"risk_score_delta"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// FraudEventRequest is the payload a student client sends for a fraud signal.
type FraudEventRequest struct {
	SessionID uuid.UUID      `json:"exam_session_id" binding:"required"`
	Type      string         `json:"fraud_type" binding:"required,max=64"`
	Details   string         `json:"details" binding:"max=2000"`
	RiskDelta int            `json:"risk_score_delta" binding:"min=0,max=100"`
	Metadata  map[string]any `json:"metadata"`
}

// FraudEventResult reports the session state after a fraud event.
type FraudEventResult struct {
	RiskScore     int           `json:"risk_score"`
	Status        SessionStatus `json:"status"`
	AutoSubmitted bool          `json:"auto_submitted"`
}

// FraudAlert is an admin-facing row for a suspicious session.
type FraudAlert struct {
	SessionID   uuid.UUID     `json:"session_id"`
	StudentID   uuid.UUID     `json:"student_id"`
	StudentName string        `json:"student_name"`
	RollNumber  string        `json:"roll_number"`
	ExamID      uuid.UUID     `json:"exam_id"`
	ExamTitle   string        `json:"exam_title"`
	RiskScore   int           `json:"risk_score"`
	Status      SessionStatus `json:"status"`
	FraudCount  int           `json:"fraud_count"`
	StartTime   time.Time     `json:"start_time"`
}

// SecurityLog records an account-level security event such as a login
// from an unbound device.
type SecurityLog struct {
	ID                  uuid.UUID  `json:"id"`
	StudentID           uuid.UUID  `json:"student_id"`
	RollNumber          string     `json:"roll_number"`
	EventType           string     `json:"event_type"`
	ExpectedFingerprint string     `json:"expected_fingerprint"`
	ActualFingerprint   string     `json:"actual_fingerprint"`
	DeviceInfo          DeviceInfo `json:"device_info"`
	Timestamp           time.Time  `json:"timestamp"`
}

const (
	SecurityEventUnauthorizedLogin  = "unauthorized_device_login"
	SecurityEventUnauthorizedAction = "unauthorized_device_action"
)
