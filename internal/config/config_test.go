package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("ALLOW_ADMIN_REGISTRATION", "false")
	t.Setenv("SESSION_GRACE_SECONDS", "15")
	t.Setenv("MAX_DB_CONNS", "not-a-number")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.AllowAdminRegistration)
	assert.Equal(t, 15*time.Second, cfg.SessionGrace)
	assert.Equal(t, int32(16), cfg.MaxDBConns)
	assert.Nil(t, cfg.AllowedOrigins)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "exam:abc:monitor", CacheKey.ExamMonitorChannel("abc"))
	assert.Equal(t, "login:s1", CacheKey.StudentTokenKey("s1"))
}
