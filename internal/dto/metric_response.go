package dto

type MetricSummaryResponse struct {
	TotalQueries  int64            `json:"totalQueries"`
	TotalDegraded int64            `json:"totalDegraded"`
	TotalErrors   int64            `json:"totalErrors"`
	ByOperator    map[string]int64 `json:"byOperator"`
}

type TimeseriesDataPoint struct {
	Timestamp int64 `json:"timestamp"` // Epoch milliseconds
	Value     int64 `json:"value"`
}

type TimeseriesSeries struct {
	Name string                `json:"name"`
	Data []TimeseriesDataPoint `json:"data"`
}

type MetricTimeseriesResponse struct {
	Series []TimeseriesSeries `json:"series"`
}
