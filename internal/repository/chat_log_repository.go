package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"vectora-backend/internal/model"
)

type ChatLogRepository interface {
	Save(ctx context.Context, entry *model.ChatLog) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.ChatLog, error)
}

type gormChatLogRepository struct {
	db *gorm.DB
}

func NewChatLogRepository(db *gorm.DB) ChatLogRepository {
	return &gormChatLogRepository{db: db}
}

func (r *gormChatLogRepository) Save(ctx context.Context, entry *model.ChatLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to save chat log: %w", err)
	}
	return nil
}

// ListByUser returns the most recent exchanges of a user, newest first.
func (r *gormChatLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.ChatLog, error) {
	var logs []model.ChatLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chat logs: %w", err)
	}
	return logs, nil
}
