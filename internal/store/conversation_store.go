package store

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"vectora-backend/internal/dto"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
)

// Planner turns kept per conversation; older turns are dropped first.
const maxConversationTurns = 20

type ConversationStore interface {
	CreateConversation(ctx context.Context) (string, error)
	GetHistory(ctx context.Context, conversationID string) ([]dto.ConversationTurn, error)
	AddTurns(ctx context.Context, conversationID string, turns ...dto.ConversationTurn) error
}

type inMemoryConversationStore struct {
	store map[string][]dto.ConversationTurn
	mu    sync.RWMutex
}

func NewInMemoryConversationStore() ConversationStore {
	return &inMemoryConversationStore{
		store: make(map[string][]dto.ConversationTurn),
	}
}

func (s *inMemoryConversationStore) CreateConversation(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.store[id] = make([]dto.ConversationTurn, 0)
	return id, nil
}

// GetHistory returns a copy of the conversation's turns, oldest first.
func (s *inMemoryConversationStore) GetHistory(ctx context.Context, conversationID string) ([]dto.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns, ok := s.store[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	out := make([]dto.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *inMemoryConversationStore) AddTurns(ctx context.Context, conversationID string, turns ...dto.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.store[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	existing = append(existing, turns...)
	if over := len(existing) - maxConversationTurns; over > 0 {
		existing = append([]dto.ConversationTurn(nil), existing[over:]...)
	}
	s.store[conversationID] = existing
	return nil
}
