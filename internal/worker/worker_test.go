package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBuilder struct {
	mu    sync.Mutex
	err   error
	calls []uuid.UUID
}

func (f *fakeBuilder) Build(_ context.Context, id uuid.UUID) (*model.IntegrityReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return &model.IntegrityReport{SessionID: id}, nil
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestReportWorker_BuildsQueuedReport(t *testing.T) {
	mr, rdb := newRedis(t)
	builder := &fakeBuilder{}
	w := NewReportWorker(rdb, builder, 3, zerolog.Nop())

	id := uuid.New()
	require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.IntegrityReportQueue, id.String()).Err())

	assert.True(t, w.processNext(context.Background()))
	assert.Equal(t, []uuid.UUID{id}, builder.calls)
	assert.False(t, mr.Exists(config.CacheKey.ReportAttemptsKey(id.String())))
}

func TestReportWorker_RequeuesThenGivesUp(t *testing.T) {
	mr, rdb := newRedis(t)
	builder := &fakeBuilder{err: errors.New("postgres down")}
	w := NewReportWorker(rdb, builder, 2, zerolog.Nop())
	w.retryDelay = 0

	ctx := context.Background()
	id := uuid.New()
	require.NoError(t, rdb.RPush(ctx, config.WorkerKey.IntegrityReportQueue, id.String()).Err())

	require.True(t, w.processNext(ctx))
	queued, err := mr.List(config.WorkerKey.IntegrityReportQueue)
	require.NoError(t, err)
	assert.Equal(t, []string{id.String()}, queued, "first failure requeues")

	require.True(t, w.processNext(ctx))
	assert.False(t, mr.Exists(config.WorkerKey.IntegrityReportQueue), "second failure drops the job")
	assert.False(t, mr.Exists(config.CacheKey.ReportAttemptsKey(id.String())))
	assert.Len(t, builder.calls, 2)
}

func TestReportWorker_GivesUpWhenAttemptsCannotBeCounted(t *testing.T) {
	mr, rdb := newRedis(t)
	builder := &fakeBuilder{err: errors.New("postgres down")}
	w := NewReportWorker(rdb, builder, 5, zerolog.Nop())
	w.retryDelay = 0

	ctx := context.Background()
	id := uuid.New()
	// INCR fails on a non-integer value.
	require.NoError(t, mr.Set(config.CacheKey.ReportAttemptsKey(id.String()), "garbage"))
	require.NoError(t, rdb.RPush(ctx, config.WorkerKey.IntegrityReportQueue, id.String()).Err())

	require.True(t, w.processNext(ctx))
	assert.False(t, mr.Exists(config.WorkerKey.IntegrityReportQueue))
	assert.False(t, mr.Exists(config.CacheKey.ReportAttemptsKey(id.String())))
	assert.Len(t, builder.calls, 1)
}

func TestReportWorker_DropsMalformedJob(t *testing.T) {
	_, rdb := newRedis(t)
	builder := &fakeBuilder{}
	w := NewReportWorker(rdb, builder, 3, zerolog.Nop())

	require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.IntegrityReportQueue, "not-a-uuid").Err())

	assert.True(t, w.processNext(context.Background()))
	assert.Empty(t, builder.calls)
}

type fakeSweeper struct {
	mu     sync.Mutex
	calls  int
	lastAt int
}

func (f *fakeSweeper) SweepOverdue(_ context.Context, autoSubmitAt int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastAt = autoSubmitAt
	return 1, nil
}

func (f *fakeSweeper) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestTimeoutWorker_SweepsUntilCancelled(t *testing.T) {
	sweeper := &fakeSweeper{}
	w := NewTimeoutWorker(sweeper, 10*time.Millisecond, 80, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sweeper.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 80, sweeper.lastAt)
}
