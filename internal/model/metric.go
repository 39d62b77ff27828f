package model

import "time"

const (
	MetricQueryEvent    = "query_event"
	MetricDegradedEvent = "degraded_event"
	MetricErrorEvent    = "error_event"
)

// MetricEvent is one countable fact derived from an AnalysisEvent.
type MetricEvent struct {
	Time           time.Time         `json:"time"`
	MetricName     string            `json:"metric_name"`
	Operator       string            `json:"operator"`
	Analysis       string            `json:"analysis"`
	DatasetVersion int64             `json:"dataset_version"`
	DurationMs     int64             `json:"duration_ms"`
	Tags           map[string]string `json:"tags,omitempty"` // error_key on error events
}
