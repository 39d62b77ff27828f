package dto

import (
	"time"

	"vectora-backend/internal/model"
)

type EventSearchRequest struct {
	StartTime time.Time
	EndTime   time.Time
	Query     string
	Operators []string
	Degraded  *bool
	SortOrder string
	Page      int
	Size      int
}

type EventSearchResponse struct {
	Events     []model.AnalysisEvent `json:"events"`
	TotalCount int64                 `json:"totalCount"`
	Page       int                   `json:"page"`
	Size       int                   `json:"size"`
}
