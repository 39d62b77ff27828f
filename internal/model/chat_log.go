package model

import "time"

// ChatLog is one persisted question/answer exchange.
type ChatLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         string    `gorm:"size:64;index" json:"user_id"`
	ConversationID string    `gorm:"size:64;index" json:"conversation_id"`
	Question       string    `gorm:"type:text" json:"question"`
	Answer         string    `gorm:"type:text" json:"answer"`
	Analysis       string    `gorm:"size:32" json:"analysis"`
	CreatedAt      time.Time `gorm:"index" json:"timestamp"`
}
