package metrics

import (
	"github.com/rs/zerolog/log"

	"vectora-backend/internal/model"
)

const unplannedOperator = "unplanned"

type Extractor interface {
	ExtractMetricEvents(event *model.AnalysisEvent) []model.MetricEvent
}

type analysisEventExtractor struct{}

func NewAnalysisEventExtractor() Extractor {
	return &analysisEventExtractor{}
}

// ExtractMetricEvents derives a query_event for every analysis, plus a
// degraded_event or error_event when the answer was not a normal result.
func (e *analysisEventExtractor) ExtractMetricEvents(event *model.AnalysisEvent) []model.MetricEvent {
	if event == nil {
		return nil
	}

	operator := event.Operator
	if operator == "" {
		operator = unplannedOperator
	}
	base := model.MetricEvent{
		Time:           event.Timestamp,
		Operator:       operator,
		Analysis:       event.Analysis,
		DatasetVersion: int64(event.DatasetVersion),
		DurationMs:     event.DurationMs,
	}

	events := make([]model.MetricEvent, 0, 2)
	events = append(events, withName(base, model.MetricQueryEvent))
	if event.Degraded {
		events = append(events, withName(base, model.MetricDegradedEvent))
	}
	if event.Error != "" {
		errEvent := withName(base, model.MetricErrorEvent)
		errEvent.Tags = map[string]string{"error_key": event.Error}
		events = append(events, errEvent)
	}

	log.Trace().Str("event_id", event.ID).Int("metric_count", len(events)).Msg("Extracted metric events")
	return events
}

func withName(base model.MetricEvent, name string) model.MetricEvent {
	base.MetricName = name
	return base
}
