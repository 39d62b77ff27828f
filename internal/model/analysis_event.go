package model

import "time"

// AnalysisEvent is published for every answered question and indexed for search.
type AnalysisEvent struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"@timestamp"`
	ConversationID string    `json:"conversation_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	Question       string    `json:"question"`
	Operator       string    `json:"operator"` // Planned operator; empty when planning failed
	Analysis       string    `json:"analysis,omitempty"`
	DatasetVersion uint64    `json:"dataset_version"`
	DurationMs     int64     `json:"duration_ms"`
	Degraded       bool      `json:"degraded"`
	Error          string    `json:"error,omitempty"`
}
