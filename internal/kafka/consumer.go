package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"

	"vectora-backend/config"
	"vectora-backend/internal/model"
)

// ErrInvalidEvent marks a fetched message that is not a usable AnalysisEvent.
// The message is still returned so the caller can commit past it.
var ErrInvalidEvent = errors.New("invalid analysis event")

type EventConsumer interface {
	FetchMessage(ctx context.Context) (*model.AnalysisEvent, kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaEventConsumer struct {
	reader *kafka.Reader
}

func NewKafkaEventConsumer(lc fx.Lifecycle, cfg *config.Config) (EventConsumer, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.EventTopic == "" || cfg.Kafka.ConsumerGroup == "" {
		log.Error().Msg("Kafka brokers, event topic or consumer group is not configured.")
		return nil, errors.New("kafka consumer configuration missing")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.ConsumerGroup,
		Topic:          cfg.Kafka.EventTopic,
		MinBytes:       1,
		MaxBytes:       1e6, // analysis events are small JSON documents
		MaxWait:        cfg.Events.MaxBatchWait,
		CommitInterval: 0, // commits happen after the batch is stored
		StartOffset:    kafka.FirstOffset,
	})
	c := &kafkaEventConsumer{reader: reader}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Str("group", cfg.Kafka.ConsumerGroup).Msg("Closing analysis event consumer")
			return c.Close()
		},
	})
	log.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.EventTopic).
		Str("group", cfg.Kafka.ConsumerGroup).
		Msg("Analysis event consumer initialized")
	return c, nil
}

func (c *kafkaEventConsumer) FetchMessage(ctx context.Context) (*model.AnalysisEvent, kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, kafka.Message{}, err
	}
	event, err := decodeEvent(msg)
	if err != nil {
		log.Warn().Err(err).Int("partition", msg.Partition).Int64("offset", msg.Offset).Msg("Dropping analysis event")
		return nil, msg, err
	}
	return event, msg, nil
}

// decodeEvent parses the message value. Events need an id; a missing timestamp
// falls back to the broker time and a missing conversation to the message key.
func decodeEvent(msg kafka.Message) (*model.AnalysisEvent, error) {
	var event model.AnalysisEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if event.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = msg.Time
	}
	if event.ConversationID == "" && len(msg.Key) > 0 {
		event.ConversationID = string(msg.Key)
	}
	return &event, nil
}

func (c *kafkaEventConsumer) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
		log.Error().Err(err).Int("count", len(msgs)).Msg("Failed to commit analysis event offsets")
		return err
	}
	return nil
}

func (c *kafkaEventConsumer) Close() error {
	return c.reader.Close()
}
