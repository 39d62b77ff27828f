package service

import (
	"context"
	"sync"

	"vectora-backend/internal/dataset"
	"vectora-backend/internal/dto"
	"vectora-backend/internal/model"
	"vectora-backend/internal/plan"
)

type fakePlanner struct {
	raw      plan.RawPlan
	planJSON string
	err      error

	histories [][]dto.ConversationTurn
	schemas   []dataset.Schema
}

func (p *fakePlanner) Plan(ctx context.Context, history []dto.ConversationTurn, question string, schema dataset.Schema) (plan.RawPlan, string, error) {
	p.histories = append(p.histories, history)
	p.schemas = append(p.schemas, schema)
	return p.raw, p.planJSON, p.err
}

type fakeChatLogRepository struct {
	saved []model.ChatLog
	err   error
}

func (r *fakeChatLogRepository) Save(ctx context.Context, entry *model.ChatLog) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, *entry)
	return nil
}

func (r *fakeChatLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.ChatLog, error) {
	var out []model.ChatLog
	for i := len(r.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if r.saved[i].UserID == userID {
			out = append(out, r.saved[i])
		}
	}
	return out, r.err
}

type fakeEventProducer struct {
	mu     sync.Mutex
	events []model.AnalysisEvent
	err    error
}

func (p *fakeEventProducer) Produce(ctx context.Context, events []model.AnalysisEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *fakeEventProducer) Close() error { return nil }

func strPtr(s string) *string { return &s }
