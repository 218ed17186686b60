package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper closes sessions that ran past their deadline or crossed the
// auto-submit threshold.
type Sweeper interface {
	SweepOverdue(ctx context.Context, autoSubmitAt int) (int, error)
}

// TimeoutWorker periodically finalizes abandoned sessions so a student who
// never submits still ends up graded.
type TimeoutWorker struct {
	sweeper      Sweeper
	interval     time.Duration
	autoSubmitAt int
	log          zerolog.Logger
}

// NewTimeoutWorker creates a new TimeoutWorker.
func NewTimeoutWorker(sweeper Sweeper, interval time.Duration, autoSubmitAt int, log zerolog.Logger) *TimeoutWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &TimeoutWorker{
		sweeper:      sweeper,
		interval:     interval,
		autoSubmitAt: autoSubmitAt,
		log:          log.With().Str("component", "timeout_worker").Logger(),
	}
}

// Start sweeps once immediately and then on every tick. Call in a goroutine.
func (w *TimeoutWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *TimeoutWorker) sweep(ctx context.Context) int {
	closed, err := w.sweeper.SweepOverdue(ctx, w.autoSubmitAt)
	if err != nil && ctx.Err() == nil {
		w.log.Error().Err(err).Msg("Sweep failed")
	}
	if closed > 0 {
		w.log.Info().Int("closed", closed).Msg("Finalized overdue sessions")
	}
	return closed
}
