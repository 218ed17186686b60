package model

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel is the coarse classification shown on an integrity report.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelModerate RiskLevel = "MODERATE"
	RiskLevelHigh     RiskLevel = "HIGH"
)

type QuestionTiming struct {
	QuestionID       uuid.UUID `json:"question_id"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

type CameraSummary struct {
	Requested        int `json:"requested"`
	Completed        int `json:"completed"`
	Pending          int `json:"pending"`
	MultipleFaceHits int `json:"multiple_face_hits"`
}

// IntegrityReport is the post-hoc forensic summary of one session.
type IntegrityReport struct {
	SessionID              uuid.UUID        `json:"session_id"`
	StudentID              uuid.UUID        `json:"student_id"`
	StudentName            string           `json:"student_name"`
	RollNumber             string           `json:"roll_number"`
	ExamID                 uuid.UUID        `json:"exam_id"`
	ExamTitle              string           `json:"exam_title"`
	Status                 SessionStatus    `json:"status"`
	RiskScore              int              `json:"risk_score"`
	RiskLevel              RiskLevel        `json:"risk_level"`
	MarksObtained          *int             `json:"marks_obtained"`
	TotalDurationSeconds   int64            `json:"total_duration_seconds"`
	QuestionTimings        []QuestionTiming `json:"question_timings"`
	FocusLossCount         int              `json:"focus_loss_count"`
	DeviceChangeAttempts   int              `json:"device_change_attempts"`
	BluetoothDetected      bool             `json:"bluetooth_detected"`
	HotspotDetected        bool             `json:"hotspot_detected"`
	OrientationChanges     int              `json:"orientation_changes"`
	Camera                 CameraSummary    `json:"camera"`
	AIGeneratedProbability float64          `json:"ai_generated_probability"`
	PeerSimilarityIndex    float64          `json:"peer_similarity_index"`
	FraudTimeline          []FraudEvent     `json:"fraud_timeline"`
	Narrative              string           `json:"narrative"`
	GeneratedAt            time.Time        `json:"generated_at"`
}

// AnswerAnalysisRequest asks the external scorer to judge a single answer.
type AnswerAnalysisRequest struct {
	QuestionText string `json:"question_text" binding:"max=5000"`
	AnswerText   string `json:"answer_text" binding:"required,max=20000"`
}

// AnswerAnalysis is the scorer verdict for one answer.
type AnswerAnalysis struct {
	IsSuspicious bool     `json:"is_suspicious"`
	Confidence   float64  `json:"confidence"`
	Reasons      []string `json:"reasons"`
	Available    bool     `json:"available"`
}
