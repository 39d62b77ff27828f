package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"

	"vectora-backend/config"
	"vectora-backend/internal/model"
)

type EventProducer interface {
	Produce(ctx context.Context, events []model.AnalysisEvent) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaEventProducer struct {
	writer messageWriter
	topic  string
}

func NewKafkaEventProducer(lc fx.Lifecycle, cfg *config.Config) (EventProducer, error) {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.EventTopic == "" {
		log.Error().Msg("Kafka brokers or event topic is not configured.")
		return nil, errors.New("kafka configuration missing")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.EventTopic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.Events.BatchSize,
		BatchTimeout: cfg.Events.MaxBatchWait,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error().Err(err).Int("message_count", len(messages)).Msg("Async Kafka write failed")
			}
		},
	}
	p := NewEventProducerWithWriter(writer, cfg.Kafka.EventTopic)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Kafka producer")
			return p.Close()
		},
	})
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.EventTopic).Msg("Kafka producer initialized")
	return p, nil
}

func NewEventProducerWithWriter(writer messageWriter, topic string) EventProducer {
	return &kafkaEventProducer{writer: writer, topic: topic}
}

// Produce writes events keyed by conversation so one conversation stays on one partition.
func (p *kafkaEventProducer) Produce(ctx context.Context, events []model.AnalysisEvent) error {
	if len(events) == 0 {
		return nil
	}
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to marshal analysis event for Kafka")
			continue
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(event.ConversationID),
			Value: value,
		})
	}
	if len(messages) == 0 {
		log.Warn().Msg("No valid messages to produce.")
		return nil
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		log.Error().Err(err).Int("message_count", len(messages)).Msg("Failed to write messages to Kafka")
		return err
	}

	log.Debug().Int("message_count", len(messages)).Str("topic", p.topic).Msg("Successfully produced messages to Kafka")
	return nil
}

func (p *kafkaEventProducer) Close() error {
	return p.writer.Close()
}
