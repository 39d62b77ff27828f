package dto

import (
	"vectora-backend/internal/chart"
	"vectora-backend/internal/engine"
)

type AskRequest struct {
	Question       string  `json:"question" binding:"required"`
	UserID         string  `json:"user_id,omitempty"`
	ConversationID *string `json:"conversationId,omitempty"`
	Visualize      bool    `json:"visualize,omitempty"`
}

type AskResponse struct {
	ConversationID string         `json:"conversationId"`
	Answer         string         `json:"answer"`
	Result         *engine.Result `json:"result,omitempty"`
	Charts         []chart.Chart  `json:"charts,omitempty"`
	DatasetVersion uint64         `json:"datasetVersion"`
}

type ConversationTurn struct {
	Role    string `json:"role"`    // "user" | "model"
	Content string `json:"content"` // Question | plan JSON
}
