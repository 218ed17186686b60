package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_EmitReachesRedisAndTopic(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, NewLoggerAdapter(zerolog.Nop()))
	bus := NewBus(rdb, ch, "exam-events", zerolog.Nop())
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	examID := uuid.New()
	sub := rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID.String()))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	msgs, err := ch.Subscribe(ctx, "exam-events")
	require.NoError(t, err)

	ev := model.MonitorEvent{
		Type:      model.MonitorFraudRecorded,
		ExamID:    examID,
		SessionID: uuid.New(),
		RiskScore: 45,
		FraudType: model.FraudTypeTabSwitch,
	}
	bus.Emit(ctx, ev)

	redisMsg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var got model.MonitorEvent
	require.NoError(t, json.Unmarshal([]byte(redisMsg.Payload), &got))
	assert.Equal(t, ev.SessionID, got.SessionID)
	assert.Equal(t, 45, got.RiskScore)
	assert.False(t, got.Timestamp.IsZero())

	select {
	case m := <-msgs:
		assert.Equal(t, string(model.MonitorFraudRecorded), m.Metadata.Get("event_type"))
		assert.Equal(t, examID.String(), m.Metadata.Get("exam_id"))
		m.Ack()
	case <-ctx.Done():
		t.Fatal("domain event not delivered")
	}
}

func TestNewPublisher_FallsBackToGoChannel(t *testing.T) {
	pub, err := NewPublisher(PublisherConfig{Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer pub.Close()

	_, ok := pub.(*gochannel.GoChannel)
	assert.True(t, ok)
}
