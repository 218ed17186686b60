package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/integrity"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

const defaultAlertLimit = 100

// MonitorService orchestrates live exam monitoring business logic.
type MonitorService struct {
	monitor repository.MonitorRepo
	rdb     *redis.Client
	now     func() time.Time
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(store *repository.Store, rdb *redis.Client) *MonitorService {
	return &MonitorService{monitor: store.Monitor, rdb: rdb, now: time.Now}
}

// Snapshot returns every in-progress session, optionally for one exam.
func (s *MonitorService) Snapshot(ctx context.Context, examID *uuid.UUID) (*model.LiveSnapshot, error) {
	live, err := s.monitor.ListLive(ctx, examID)
	if err != nil {
		return nil, err
	}

	snap := &model.LiveSnapshot{
		ActiveSessions: live,
		TotalActive:    len(live),
		GeneratedAt:    s.now().UTC(),
	}
	for _, l := range live {
		if l.RiskScore >= integrity.HighRiskThreshold {
			snap.HighRisk++
		}
		snap.PendingCameraChecks += l.PendingCameraChecks
	}
	return snap, nil
}

// FraudAlerts lists sessions at or above the alert threshold or with any
// fraud event, newest first.
func (s *MonitorService) FraudAlerts(ctx context.Context, limit int) ([]model.FraudAlert, error) {
	if limit < 1 || limit > 500 {
		limit = defaultAlertLimit
	}
	return s.monitor.ListFraudAlerts(ctx, integrity.FraudAlertThreshold, limit)
}

// Overview fetches the live snapshot and the alert board concurrently.
// Alerts are best effort; a failed alert query leaves them empty.
func (s *MonitorService) Overview(ctx context.Context, examID *uuid.UUID) (*model.LiveSnapshot, []model.FraudAlert, error) {
	var (
		snap     *model.LiveSnapshot
		alerts   []model.FraudAlert
		snapErr  error
		alertErr error
		wg       sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		snap, snapErr = s.Snapshot(ctx, examID)
	}()
	go func() {
		defer wg.Done()
		alerts, alertErr = s.FraudAlerts(ctx, defaultAlertLimit)
	}()
	wg.Wait()

	if snapErr != nil {
		return nil, nil, snapErr
	}
	if alertErr != nil || alerts == nil {
		alerts = []model.FraudAlert{}
	}
	return snap, alerts, nil
}

// Subscribe attaches to the monitor channel of one exam, or of every exam
// when examID is nil. The caller closes the subscription.
func (s *MonitorService) Subscribe(ctx context.Context, examID *uuid.UUID) *redis.PubSub {
	if examID == nil {
		return s.rdb.PSubscribe(ctx, config.CacheKey.MonitorPattern())
	}
	return s.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID.String()))
}
