package repository

import (
	"context"

	"vectora-backend/internal/dto"
)

type EventRepository interface {
	Search(ctx context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error)
}
