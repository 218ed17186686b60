package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/integrity"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stemsi/exstem-proctor/internal/scorer"
)

// IntegrityService builds and caches per-session integrity reports. Reads
// are a lock-free snapshot; the scorer is called outside any transaction and
// the report write is an idempotent overwrite, so a build can be retried.
type IntegrityService struct {
	store  *repository.Store
	scorer scorer.Scorer
	log    zerolog.Logger
	now    func() time.Time
}

// NewIntegrityService creates a new IntegrityService.
func NewIntegrityService(store *repository.Store, sc scorer.Scorer, log zerolog.Logger) *IntegrityService {
	return &IntegrityService{
		store:  store,
		scorer: sc,
		log:    log.With().Str("component", "integrity_service").Logger(),
		now:    time.Now,
	}
}

// Get returns the cached report, building it when missing or when refresh is set.
func (s *IntegrityService) Get(ctx context.Context, sessionID uuid.UUID, refresh bool) (*model.IntegrityReport, error) {
	if !refresh {
		report, err := s.store.IntegrityReports.Get(ctx, sessionID)
		if err == nil {
			return report, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("get cached report: %w", err)
		}
	}
	return s.Build(ctx, sessionID)
}

// Build derives the report from the current session snapshot and stores it.
func (s *IntegrityService) Build(ctx context.Context, sessionID uuid.UUID) (*model.IntegrityReport, error) {
	in, err := s.snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	in.AIProbability = s.aiProbability(ctx, sessionID, in.Answers)
	in.GeneratedAt = s.now().UTC()

	report := integrity.Build(*in)
	if err := s.store.IntegrityReports.Upsert(ctx, &report); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("risk_level", string(report.RiskLevel)).
		Float64("peer_similarity", report.PeerSimilarityIndex).
		Msg("Integrity report built")
	return &report, nil
}

func (s *IntegrityService) snapshot(ctx context.Context, sessionID uuid.UUID) (*integrity.Input, error) {
	session, err := s.store.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	exam, err := s.store.Exams.GetByID(ctx, session.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	student, err := s.store.Students.GetByID(ctx, session.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	answers, err := s.store.Sessions.ListAnswers(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	fraudEvents, err := s.store.Sessions.ListFraudEvents(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list fraud events: %w", err)
	}
	checks, err := s.store.CameraChecks.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list camera checks: %w", err)
	}
	// Only device rejections during this attempt count against it.
	windowEnd := s.now()
	if session.EndTime != nil {
		windowEnd = *session.EndTime
	}
	securityLogs, err := s.store.SecurityLogs.CountByStudentBetween(ctx, session.StudentID, session.StartTime, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("count security logs: %w", err)
	}
	peerMap, err := s.store.Sessions.ListPeerAnswers(ctx, session.ExamID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list peer answers: %w", err)
	}

	peers := make([]integrity.PeerAnswers, 0, len(peerMap))
	for id, a := range peerMap {
		peers = append(peers, integrity.PeerAnswers{SessionID: id, Answers: a})
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].SessionID.String() < peers[j].SessionID.String() })

	return &integrity.Input{
		Session:          session,
		Exam:             exam,
		Student:          student,
		Answers:          answers,
		Events:           fraudEvents,
		CameraChecks:     checks,
		SecurityLogCount: securityLogs,
		Peers:            peers,
	}, nil
}

// aiProbability asks the scorer about the answer sample. Any scorer failure
// yields the neutral 0.
func (s *IntegrityService) aiProbability(ctx context.Context, sessionID uuid.UUID, answers []model.Answer) float64 {
	sample, ok := integrity.AISample(answers)
	if !ok || s.scorer == nil {
		return 0
	}
	p, err := s.scorer.AIProbability(ctx, sample)
	if err != nil {
		if !errors.Is(err, ErrExternalServiceUnavailable) {
			s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("AI probability scoring failed")
		}
		return 0
	}
	return p
}
