package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeviceInfo is the hardware description reported by the exam client.
type DeviceInfo struct {
	DeviceID     string `json:"device_id" binding:"required"`
	OS           string `json:"os" binding:"required"`
	OSVersion    string `json:"os_version"`
	ScreenWidth  int    `json:"screen_width"`
	ScreenHeight int    `json:"screen_height"`
	Model        string `json:"model,omitempty"`
}

// Fingerprint derives the string used to bind an account to a device.
func (d DeviceInfo) Fingerprint() string {
	return strings.Join([]string{
		d.DeviceID,
		d.OS,
		d.OSVersion,
		strconv.Itoa(d.ScreenWidth),
		strconv.Itoa(d.ScreenHeight),
	}, "-")
}

// Student represents a registered student account.
type Student struct {
	ID                uuid.UUID  `json:"id"`
	FullName          string     `json:"full_name"`
	RollNumber        string     `json:"roll_number"`
	Department        string     `json:"department"`
	Semester          int        `json:"semester"`
	PasswordHash      string     `json:"-"`
	DeviceFingerprint string     `json:"-"`
	DeviceInfo        DeviceInfo `json:"device_info"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// StudentRegisterRequest is the payload for self-registration.
type StudentRegisterRequest struct {
	FullName   string     `json:"full_name" binding:"required,max=255"`
	RollNumber string     `json:"roll_number" binding:"required,max=64"`
	Department string     `json:"department" binding:"required,max=100"`
	Semester   int        `json:"semester" binding:"required,min=1,max=12"`
	Password   string     `json:"password" binding:"required,min=6"`
	DeviceInfo DeviceInfo `json:"device_info" binding:"required"`
}

// StudentLoginRequest is the payload for student login.
type StudentLoginRequest struct {
	RollNumber string     `json:"roll_number" binding:"required"`
	Password   string     `json:"password" binding:"required"`
	DeviceInfo DeviceInfo `json:"device_info" binding:"required"`
}

// StudentExamHistory is one row of a student's exam history.
type StudentExamHistory struct {
	SessionID     uuid.UUID     `json:"session_id"`
	ExamID        uuid.UUID     `json:"exam_id"`
	ExamTitle     string        `json:"exam_title"`
	Status        SessionStatus `json:"status"`
	RiskScore     int           `json:"risk_score"`
	MarksObtained *int          `json:"marks_obtained"`
	TotalMarks    int           `json:"total_marks"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       *time.Time    `json:"end_time"`
}
