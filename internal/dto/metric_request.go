package dto

import "time"

type MetricSummaryRequest struct {
	StartTime time.Time
	EndTime   time.Time
	Operators []string
}

type MetricTimeseriesRequest struct {
	StartTime  time.Time
	EndTime    time.Time
	Operators  []string
	MetricName string // query_event, degraded_event, error_event
	Interval   string // e.g. "5 minute", "1 hour"
	GroupBy    string // operator, analysis, total
}
