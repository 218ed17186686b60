package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	ws "github.com/stemsi/exstem-proctor/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler carries the live exam channel of one student. Every action goes
// through the same services as the REST endpoints.
type WSHandler struct {
	sessionService *service.ExamSessionService
	riskService    *service.RiskService
	upgrader       websocket.Upgrader
	log            zerolog.Logger
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	sessionService *service.ExamSessionService,
	riskService *service.RiskService,
	allowedOrigins []string,
	log zerolog.Logger,
) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		riskService:    riskService,
		upgrader:       buildUpgrader(allowedOrigins),
		log:            log.With().Str("component", "ws_handler").Logger(),
	}
}

// ExamWebSocketStream godoc
// GET /ws/v1/student/exams/:exam_id/stream?token=
// Requires a started, still open session for the exam.
func (h *WSHandler) ExamWebSocketStream(c *gin.Context) {
	p, ok := student(c)
	if !ok {
		return
	}
	examID, ok := paramUUID(c, "exam_id")
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	stopKeepAlive := ws.KeepAlive(conn)
	defer stopKeepAlive()

	ctx := c.Request.Context()

	state, err := h.sessionService.State(ctx, p, examID)
	if err != nil || state.Session.Status != model.SessionStatusInProgress {
		ws.WriteError(conn, string(response.ErrNoActiveSession), "no active session for this exam")
		return
	}
	sessionID := state.Session.ID

	wsLog := h.log.With().
		Str("student_id", p.ID.String()).
		Str("exam_id", examID.String()).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var closed bool
		switch msg.Action {
		case ws.ActionAnswer:
			closed = h.handleAnswer(ctx, conn, p, examID, &msg)
		case ws.ActionFraud:
			closed = h.handleFraud(ctx, conn, p, sessionID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(ctx, conn, wsLog, p, examID)
			closed = true
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
		if closed {
			return
		}
	}
}

// handleAnswer saves one answer. It reports true once the session is no
// longer accepting answers.
func (h *WSHandler) handleAnswer(ctx context.Context, conn *websocket.Conn, p model.StudentPrincipal, examID uuid.UUID, msg *ws.RequestPayload) bool {
	if msg.QuestionID == uuid.Nil {
		ws.WriteError(conn, string(response.ErrValidation), "question_id is required")
		return false
	}

	_, err := h.sessionService.SubmitAnswer(ctx, p, examID, model.SubmitAnswerRequest{
		QuestionID:       msg.QuestionID,
		Answer:           msg.Answer,
		TimeTakenSeconds: msg.TimeTakenSeconds,
	})
	if err != nil {
		_, code := mapError(err)
		ws.WriteError(conn, string(code), err.Error())
		return code == response.ErrNoActiveSession
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, QuestionID: msg.QuestionID})
	return false
}

// handleFraud records a fraud signal. It reports true when the signal
// pushed the session into auto-submission.
func (h *WSHandler) handleFraud(ctx context.Context, conn *websocket.Conn, p model.StudentPrincipal, sessionID uuid.UUID, msg *ws.RequestPayload) bool {
	if msg.FraudType == "" {
		ws.WriteError(conn, string(response.ErrValidation), "fraud_type is required")
		return false
	}

	result, err := h.riskService.RecordFraudEvent(ctx, p, model.FraudEventRequest{
		SessionID: sessionID,
		Type:      msg.FraudType,
		Details:   msg.Details,
		RiskDelta: msg.RiskDelta,
		Metadata:  msg.Metadata,
	})
	if err != nil {
		_, code := mapError(err)
		ws.WriteError(conn, string(code), err.Error())
		return code == response.ErrNoActiveSession
	}

	ws.WriteTyped(conn, ws.RiskResponse{
		Event:         ws.EventRisk,
		RiskScore:     result.RiskScore,
		Status:        result.Status,
		AutoSubmitted: result.AutoSubmitted,
	})
	return result.Status.Terminal()
}

func (h *WSHandler) handleSubmit(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, p model.StudentPrincipal, examID uuid.UUID) {
	session, err := h.sessionService.Submit(ctx, p, examID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit failed")
		_, code := mapError(err)
		ws.WriteError(conn, string(code), err.Error())
		return
	}

	wsLog.Info().Str("status", string(session.Status)).Msg("Exam submitted")

	ws.WriteTyped(conn, ws.SubmittedResponse{
		Event:         ws.EventSubmitted,
		Status:        session.Status,
		MarksObtained: session.MarksObtained,
	})
}
