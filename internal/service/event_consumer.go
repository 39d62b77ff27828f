package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"

	"vectora-backend/config"
	"vectora-backend/internal/elasticsearch"
	"vectora-backend/internal/kafka"
	"vectora-backend/internal/metrics"
	"vectora-backend/internal/model"
	"vectora-backend/internal/timescaledb"
)

type EventConsumerService interface {
	Run(ctx context.Context, wg *sync.WaitGroup)
}

type eventConsumerService struct {
	consumer    kafka.EventConsumer
	eventStore  elasticsearch.EventStore
	metricStore timescaledb.MetricStore
	extractor   metrics.Extractor
	batchSize   int           // How many Kafka messages to process at once
	maxWaitTime time.Duration // Max time to wait for batchSize messages
}

func NewEventConsumerService(
	consumer kafka.EventConsumer,
	eventStore elasticsearch.EventStore,
	metricStore timescaledb.MetricStore,
	extractor metrics.Extractor,
	cfg *config.Config,
) EventConsumerService {
	batchSize := cfg.Events.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	maxWaitTime := cfg.Events.MaxBatchWait
	if maxWaitTime <= 0 {
		maxWaitTime = 5 * time.Second
	}
	return &eventConsumerService{
		consumer:    consumer,
		eventStore:  eventStore,
		metricStore: metricStore,
		extractor:   extractor,
		batchSize:   batchSize,
		maxWaitTime: maxWaitTime,
	}
}

func (s *eventConsumerService) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	log.Info().Msg("Starting Event Consumer Service loop...")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Event Consumer Service loop stopping due to context cancellation.")
			return
		default:
		}

		err := s.processBatch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info().Msg("Context cancelled during batch processing.")
				return
			}
			log.Error().Err(err).Msg("Error processing consumer batch")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

func (s *eventConsumerService) processBatch(ctx context.Context) error {
	events := make([]model.AnalysisEvent, 0, s.batchSize)
	messages := make([]kafkaGo.Message, 0, s.batchSize)
	batchStart := time.Now()

fetch:
	for len(messages) < s.batchSize {
		if err := ctx.Err(); err != nil {
			log.Info().Msg("Context cancelled while building consumer batch.")
			return err
		}

		remaining := s.maxWaitTime - time.Since(batchStart)
		if remaining <= 0 {
			break
		}
		fetchCtx, cancel := context.WithTimeout(ctx, remaining)
		event, msg, err := s.consumer.FetchMessage(fetchCtx)
		cancel()

		switch {
		case err == nil:
			events = append(events, *event)
			messages = append(messages, msg)
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			log.Debug().Int("batch_size", len(messages)).Msg("Max wait time reached for batch, processing partial batch.")
			break fetch
		case errors.Is(err, kafka.ErrInvalidEvent):
			// Commit it with the batch so it is not redelivered forever.
			log.Warn().Int64("offset", msg.Offset).Msg("Skipping invalid analysis event")
			messages = append(messages, msg)
		default:
			return fmt.Errorf("failed to fetch kafka message: %w", err)
		}
	}

	if len(messages) == 0 {
		log.Debug().Msg("No messages in batch to process.")
		return nil
	}

	if len(events) > 0 {
		if err := s.eventStore.StoreEvents(ctx, events); err != nil {
			return fmt.Errorf("failed storing events: %w", err)
		}

		metricEvents := make([]model.MetricEvent, 0, len(events))
		for i := range events {
			metricEvents = append(metricEvents, s.extractor.ExtractMetricEvents(&events[i])...)
		}
		if err := s.metricStore.StoreMetricEvents(ctx, metricEvents); err != nil {
			return fmt.Errorf("failed storing metric events: %w", err)
		}
	}

	if err := s.consumer.CommitMessages(ctx, messages...); err != nil {
		log.Error().Err(err).Msg("Failed to commit Kafka messages after successful storage")
		return fmt.Errorf("failed committing kafka messages: %w", err)
	}
	log.Info().Int("batch_size", len(messages)).Int("events", len(events)).Msg("Successfully processed and committed batch.")
	return nil
}
