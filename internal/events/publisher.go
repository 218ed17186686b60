package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

// PublisherConfig selects the domain-event transport.
type PublisherConfig struct {
	KafkaBrokers []string
	Logger       zerolog.Logger
}

// NewPublisher returns a Kafka publisher when brokers are configured and an
// in-process go channel otherwise.
func NewPublisher(cfg PublisherConfig) (message.Publisher, error) {
	logger := NewLoggerAdapter(cfg.Logger.With().Str("component", "event_publisher").Logger())

	if len(cfg.KafkaBrokers) == 0 {
		cfg.Logger.Info().Msg("KAFKA_BROKERS not set, domain events stay in-process")
		return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger), nil
	}

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}

	cfg.Logger.Info().Strs("brokers", cfg.KafkaBrokers).Msg("Kafka event publisher ready")
	return pub, nil
}
