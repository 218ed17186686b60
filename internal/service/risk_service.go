package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/events"
	"github.com/stemsi/exstem-proctor/internal/integrity"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

// RiskService accumulates fraud signals into the session risk score and
// forces an auto-submit once the score reaches the threshold.
type RiskService struct {
	sessions  repository.ExamSessionRepo
	finalizer *ExamSessionService
	events    events.Emitter
	log       zerolog.Logger
}

// NewRiskService creates a new RiskService.
func NewRiskService(store *repository.Store, finalizer *ExamSessionService, emitter events.Emitter, log zerolog.Logger) *RiskService {
	return &RiskService{
		sessions:  store.Sessions,
		finalizer: finalizer,
		events:    emitter,
		log:       log.With().Str("component", "risk_service").Logger(),
	}
}

// RecordFraudEvent appends a client-reported signal to the caller's own session.
func (s *RiskService) RecordFraudEvent(ctx context.Context, p model.StudentPrincipal, req model.FraudEventRequest) (*model.FraudEventResult, error) {
	if req.RiskDelta < 0 {
		return nil, ErrInvalidRiskDelta
	}

	session, err := s.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.StudentID != p.ID {
		return nil, ErrForbidden
	}

	return s.record(ctx, session, &model.FraudEvent{
		SessionID: session.ID,
		Type:      req.Type,
		Details:   req.Details,
		RiskDelta: req.RiskDelta,
		Metadata:  req.Metadata,
	})
}

// record stores ev with an atomic add-then-clamp and auto-submits at the
// threshold. The caller has already checked ownership.
func (s *RiskService) record(ctx context.Context, session *model.ExamSession, ev *model.FraudEvent) (*model.FraudEventResult, error) {
	score, err := s.sessions.AppendFraudEvent(ctx, ev)
	if err != nil {
		return nil, err
	}

	s.log.Warn().
		Str("session_id", session.ID.String()).
		Str("student_id", session.StudentID.String()).
		Str("fraud_type", ev.Type).
		Int("delta", ev.RiskDelta).
		Int("risk_score", score).
		Msg("Fraud event recorded")

	s.events.Emit(ctx, model.MonitorEvent{
		Type:      model.MonitorFraudRecorded,
		ExamID:    session.ExamID,
		SessionID: session.ID,
		StudentID: session.StudentID,
		Status:    model.SessionStatusInProgress,
		RiskScore: score,
		FraudType: ev.Type,
	})

	result := &model.FraudEventResult{RiskScore: score, Status: model.SessionStatusInProgress}
	if !integrity.ShouldAutoSubmit(score) {
		return result, nil
	}

	done, err := s.finalizer.Finalize(ctx, session.ID, model.SessionStatusAutoSubmitted)
	switch {
	case err == nil:
		result.Status = done.Status
		result.AutoSubmitted = true
	case errors.Is(err, ErrSessionAlreadyFinalized):
		// Someone else closed the session first; report what was stored.
		if stored, getErr := s.sessions.GetByID(ctx, session.ID); getErr == nil {
			result.Status = stored.Status
		}
	default:
		// The sweeper retries sessions left at or above the threshold.
		s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Auto-submit failed")
	}
	return result, nil
}
