package websocket

import (
	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionFraud  Action = "fraud"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestPayload is the single frame shape the exam client sends. Only the
// fields relevant to Action are read.
type RequestPayload struct {
	Action Action `json:"action"`

	// answer
	QuestionID       uuid.UUID `json:"question_id,omitempty"`
	Answer           string    `json:"answer,omitempty"`
	TimeTakenSeconds int       `json:"time_taken_seconds,omitempty"`

	// fraud
	FraudType string         `json:"fraud_type,omitempty"`
	Details   string         `json:"details,omitempty"`
	RiskDelta int            `json:"risk_score_delta,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventRisk      Event = "risk"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event      Event     `json:"event"`
	QuestionID uuid.UUID `json:"question_id"`
}

type RiskResponse struct {
	Event         Event               `json:"event"`
	RiskScore     int                 `json:"risk_score"`
	Status        model.SessionStatus `json:"status"`
	AutoSubmitted bool                `json:"auto_submitted"`
}

type SubmittedResponse struct {
	Event         Event               `json:"event"`
	Status        model.SessionStatus `json:"status"`
	MarksObtained *int                `json:"marks_obtained"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
