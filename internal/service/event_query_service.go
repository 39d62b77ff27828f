package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"vectora-backend/internal/dto"
	"vectora-backend/internal/repository"
)

type EventQueryService interface {
	SearchEvents(ctx context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error)
}

type eventQueryService struct {
	eventRepo repository.EventRepository
}

func NewEventQueryService(eventRepo repository.EventRepository) EventQueryService {
	return &eventQueryService{
		eventRepo: eventRepo,
	}
}

func (s *eventQueryService) SearchEvents(ctx context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error) {
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 || req.Size > 1000 {
		req.Size = 100
	}
	req.SortOrder = strings.ToLower(req.SortOrder)
	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		req.SortOrder = "desc"
	}
	for i, op := range req.Operators {
		req.Operators[i] = strings.ToLower(strings.TrimSpace(op))
	}

	log.Info().
		Time("start_time", req.StartTime).
		Time("end_time", req.EndTime).
		Str("query", req.Query).
		Strs("operators", req.Operators).
		Int("page", req.Page).
		Int("size", req.Size).
		Msg("Searching analysis events")

	return s.eventRepo.Search(ctx, req)
}

var (
	ErrTimeRangeRequired = errors.New("startTime and endTime are required")
	ErrTimeRangeInverted = errors.New("endTime cannot be before startTime")
)
