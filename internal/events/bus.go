// Package events fans session state changes out to the live monitor
// (Redis Pub/Sub, consumed by the admin SSE stream) and to the domain event
// log (watermill, Kafka in production).
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// Emitter accepts monitor events. Delivery is best effort.
type Emitter interface {
	Emit(ctx context.Context, ev model.MonitorEvent)
}

// Bus publishes every event to the exam's monitor channel and the domain topic.
type Bus struct {
	rdb   *redis.Client
	pub   message.Publisher
	topic string
	log   zerolog.Logger
}

// NewBus creates a Bus. Either rdb or pub may be nil to skip that sink.
func NewBus(rdb *redis.Client, pub message.Publisher, topic string, log zerolog.Logger) *Bus {
	return &Bus{
		rdb:   rdb,
		pub:   pub,
		topic: topic,
		log:   log.With().Str("component", "event_bus").Logger(),
	}
}

// Emit never fails the caller; sink errors are logged.
func (b *Bus) Emit(ctx context.Context, ev model.MonitorEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		b.log.Error().Err(err).Str("type", string(ev.Type)).Msg("Marshal monitor event")
		return
	}

	if b.rdb != nil {
		channel := config.CacheKey.ExamMonitorChannel(ev.ExamID.String())
		if err := b.rdb.Publish(ctx, channel, data).Err(); err != nil {
			b.log.Warn().Err(err).Str("channel", channel).Msg("Redis publish failed")
		}
	}

	if b.pub != nil {
		msg := message.NewMessage(watermill.NewUUID(), data)
		msg.Metadata.Set("event_type", string(ev.Type))
		msg.Metadata.Set("exam_id", ev.ExamID.String())
		msg.Metadata.Set("session_id", ev.SessionID.String())
		msg.Metadata.Set("timestamp", ev.Timestamp.Format(time.RFC3339))
		if err := b.pub.Publish(b.topic, msg); err != nil {
			b.log.Warn().Err(err).Str("topic", b.topic).Msg("Domain event publish failed")
		}
	}
}

// Close closes the domain publisher.
func (b *Bus) Close() error {
	if b.pub == nil {
		return nil
	}
	return b.pub.Close()
}
