package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

// ReportBuilder builds and stores the integrity report of one session.
type ReportBuilder interface {
	Build(ctx context.Context, sessionID uuid.UUID) (*model.IntegrityReport, error)
}

// ReportWorker consumes integrity_report_queue and builds a report for every
// finalized session. Failed jobs are requeued up to maxAttempts times.
type ReportWorker struct {
	rdb         *redis.Client
	builder     ReportBuilder
	maxAttempts int
	retryDelay  time.Duration
	log         zerolog.Logger
}

// NewReportWorker creates a new ReportWorker.
func NewReportWorker(rdb *redis.Client, builder ReportBuilder, maxAttempts int, log zerolog.Logger) *ReportWorker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ReportWorker{
		rdb:         rdb,
		builder:     builder,
		maxAttempts: maxAttempts,
		retryDelay:  5 * time.Second,
		log:         log.With().Str("component", "report_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
// Jobs still queued at shutdown stay in Redis for the next start.
func (w *ReportWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

// processNext handles at most one job. It reports whether a job was taken.
func (w *ReportWorker) processNext(ctx context.Context) bool {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.IntegrityReportQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
			time.Sleep(time.Second)
		}
		return false
	}

	if len(result) < 2 {
		return false
	}

	sessionID, err := uuid.Parse(result[1])
	if err != nil {
		w.log.Error().Err(err).Str("payload", result[1]).Msg("Dropping malformed job")
		return true
	}

	w.handle(ctx, sessionID)
	return true
}

func (w *ReportWorker) handle(ctx context.Context, sessionID uuid.UUID) {
	attemptsKey := config.CacheKey.ReportAttemptsKey(sessionID.String())

	_, err := w.builder.Build(ctx, sessionID)
	if err == nil {
		w.rdb.Del(ctx, attemptsKey)
		w.log.Debug().Str("session_id", sessionID.String()).Msg("Integrity report built")
		return
	}

	if errors.Is(err, repository.ErrNotFound) {
		// Session deleted since it was queued.
		w.rdb.Del(ctx, attemptsKey)
		return
	}

	attempts, incrErr := w.rdb.Incr(ctx, attemptsKey).Result()
	if incrErr != nil {
		// Without a counter the retry budget cannot be enforced.
		w.rdb.Del(ctx, attemptsKey)
		w.log.Error().Err(err).AnErr("count_error", incrErr).
			Str("session_id", sessionID.String()).
			Msg("Giving up on integrity report, attempts not countable")
		return
	}
	w.rdb.Expire(ctx, attemptsKey, 24*time.Hour)

	if attempts >= int64(w.maxAttempts) {
		w.rdb.Del(ctx, attemptsKey)
		w.log.Error().Err(err).
			Str("session_id", sessionID.String()).
			Int64("attempts", attempts).
			Msg("Giving up on integrity report")
		return
	}

	w.log.Warn().Err(err).
		Str("session_id", sessionID.String()).
		Int64("attempts", attempts).
		Dur("retry_in", w.retryDelay).
		Msg("Integrity report failed, requeueing")

	w.rdb.RPush(ctx, config.WorkerKey.IntegrityReportQueue, sessionID.String())
	if w.retryDelay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(w.retryDelay):
		}
	}
}
