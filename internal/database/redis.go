package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
)

const (
	redisPingAttempts = 5
	redisPingBackoff  = time.Second
)

// NewRedisClient connects to Redis, retrying the initial ping so the server
// can start alongside a Redis container that is still booting.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opt.ClientName = "exstem-proctor"

	rdb := redis.NewClient(opt)

	for attempt := 1; ; attempt++ {
		err = rdb.Ping(ctx).Err()
		if err == nil {
			break
		}
		if attempt == redisPingAttempts {
			rdb.Close()
			return nil, fmt.Errorf("ping redis after %d attempts: %w", attempt, err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Redis not ready, retrying")

		select {
		case <-ctx.Done():
			rdb.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * redisPingBackoff):
		}
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Msg("Redis connected")

	return rdb, nil
}
