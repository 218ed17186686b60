package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Health pings the backing stores for the /health endpoint.
type Health struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

func NewHealth(pool *pgxpool.Pool, rdb *redis.Client) *Health {
	return &Health{pool: pool, rdb: rdb}
}

// Check returns "ok" or the error text per dependency, and whether all passed.
func (h *Health) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true

	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			status["postgres"] = err.Error()
			healthy = false
		} else {
			status["postgres"] = "ok"
		}
	}
	if h.rdb != nil {
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			status["redis"] = err.Error()
			healthy = false
		} else {
			status["redis"] = "ok"
		}
	}
	return status, healthy
}
