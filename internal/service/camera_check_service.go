package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/events"
	"github.com/stemsi/exstem-proctor/internal/integrity"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

// CameraCheckResult is the completed check plus the risk state it produced.
type CameraCheckResult struct {
	Check *model.CameraCheck      `json:"check"`
	Risk  *model.FraudEventResult `json:"risk,omitempty"`
}

// CameraCheckService lets admins ask a student device for a camera capture
// and folds the reported face count into the risk score.
type CameraCheckService struct {
	checks   repository.CameraCheckRepo
	sessions repository.ExamSessionRepo
	risk     *RiskService
	events   events.Emitter
	log      zerolog.Logger
	now      func() time.Time
}

// NewCameraCheckService creates a new CameraCheckService.
func NewCameraCheckService(store *repository.Store, risk *RiskService, emitter events.Emitter, log zerolog.Logger) *CameraCheckService {
	return &CameraCheckService{
		checks:   store.CameraChecks,
		sessions: store.Sessions,
		risk:     risk,
		events:   emitter,
		log:      log.With().Str("component", "camera_check_service").Logger(),
		now:      time.Now,
	}
}

// Request opens a pending check on an in-progress session.
func (s *CameraCheckService) Request(ctx context.Context, admin model.AdminPrincipal, sessionID uuid.UUID) (*model.CameraCheck, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusInProgress {
		return nil, ErrNoActiveSession
	}

	check := &model.CameraCheck{SessionID: sessionID, RequestedBy: admin.ID}
	if err := s.checks.Create(ctx, check); err != nil {
		return nil, err
	}

	s.events.Emit(ctx, model.MonitorEvent{
		Type:      model.MonitorCameraRequested,
		ExamID:    session.ExamID,
		SessionID: session.ID,
		StudentID: session.StudentID,
		Status:    session.Status,
		RiskScore: session.RiskScore,
	})
	return check, nil
}

// ListBySession returns every check of a session, for admins.
func (s *CameraCheckService) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.CameraCheck, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.checks.ListBySession(ctx, sessionID)
}

// ListPending returns the checks the student's device still has to answer.
func (s *CameraCheckService) ListPending(ctx context.Context, p model.StudentPrincipal, examID uuid.UUID) ([]model.CameraCheck, error) {
	session, err := s.sessions.GetByStudentAndExam(ctx, p.ID, examID)
	if err != nil {
		return nil, err
	}
	all, err := s.checks.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	pending := make([]model.CameraCheck, 0, len(all))
	for _, c := range all {
		if c.Status == model.CameraCheckPending {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

// Complete stores the device's answer. More than one face adds a
// multiple_faces event worth MultipleFacesDelta on top of the client delta.
func (s *CameraCheckService) Complete(ctx context.Context, p model.StudentPrincipal, checkID uuid.UUID, req model.CameraCheckResultRequest) (*CameraCheckResult, error) {
	if req.RiskDelta < 0 {
		return nil, ErrInvalidRiskDelta
	}

	check, err := s.checks.GetByID(ctx, checkID)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.GetByID(ctx, check.SessionID)
	if err != nil {
		return nil, err
	}
	if session.StudentID != p.ID {
		return nil, ErrForbidden
	}

	done, err := s.checks.Complete(ctx, checkID, req.FacesDetected, req.Notes, s.now())
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, model.MonitorEvent{
		Type:      model.MonitorCameraCompleted,
		ExamID:    session.ExamID,
		SessionID: session.ID,
		StudentID: session.StudentID,
		Status:    session.Status,
		RiskScore: session.RiskScore,
	})

	result := &CameraCheckResult{Check: done}
	ev := cameraFraudEvent(session.ID, done, req)
	if ev == nil {
		return result, nil
	}

	risk, err := s.risk.record(ctx, session, ev)
	if err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			return result, nil
		}
		return nil, err
	}
	result.Risk = risk
	return result, nil
}

// cameraFraudEvent turns a check result into a fraud event, or nil when the
// result carries no risk.
func cameraFraudEvent(sessionID uuid.UUID, check *model.CameraCheck, req model.CameraCheckResultRequest) *model.FraudEvent {
	ev := &model.FraudEvent{
		SessionID: sessionID,
		Type:      model.FraudTypeCameraCheck,
		Details:   req.Notes,
		RiskDelta: req.RiskDelta,
		Metadata: map[string]any{
			"camera_check_id": check.ID.String(),
			"faces_detected":  req.FacesDetected,
		},
	}
	if req.FacesDetected > 1 {
		ev.Type = model.FraudTypeMultipleFaces
		ev.RiskDelta += integrity.MultipleFacesDelta
	}
	if ev.RiskDelta == 0 {
		return nil
	}
	return ev
}
