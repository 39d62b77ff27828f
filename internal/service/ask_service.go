package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vectora-backend/config"
	"vectora-backend/internal/chart"
	"vectora-backend/internal/dataset"
	"vectora-backend/internal/dto"
	"vectora-backend/internal/engine"
	"vectora-backend/internal/kafka"
	"vectora-backend/internal/model"
	"vectora-backend/internal/narrative"
	"vectora-backend/internal/plan"
	"vectora-backend/internal/repository"
	"vectora-backend/internal/store"
)

const (
	plannerFailureReply = "I couldn't process your request: %s. Please try rephrasing or asking about existing columns."
	chartLinkText       = "\n\nYou can see a visualization of the chart [here](/chat/visualize)."
	downloadLinkText    = "\n\n[Download Cleaned Data](%s/api/v1/dataset/download)"
)

type AskService interface {
	Ask(ctx context.Context, req dto.AskRequest) (*dto.AskResponse, error)
	// History lists a user's persisted exchanges, newest first.
	History(ctx context.Context, userID string, limit int) ([]model.ChatLog, error)
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type askService struct {
	datasets      store.DatasetStore
	conversations store.ConversationStore
	planner       Planner
	chatLogs      repository.ChatLogRepository
	events        kafka.EventProducer
	apiBaseURL    string
	now           func() time.Time
}

func NewAskService(
	datasets store.DatasetStore,
	conversations store.ConversationStore,
	planner Planner,
	chatLogs repository.ChatLogRepository,
	events kafka.EventProducer,
	cfg *config.Config,
) AskService {
	return &askService{
		datasets:      datasets,
		conversations: conversations,
		planner:       planner,
		chatLogs:      chatLogs,
		events:        events,
		apiBaseURL:    cfg.Server.APIBaseURL,
		now:           time.Now,
	}
}

func (s *askService) Ask(ctx context.Context, req dto.AskRequest) (*dto.AskResponse, error) {
	start := s.now()
	log.Info().Str("question", req.Question).Str("user_id", req.UserID).Msg("Processing question")

	snap, err := s.datasets.Current()
	if err != nil {
		return nil, err
	}

	conversationID, history, err := s.resolveConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}

	event := model.AnalysisEvent{
		ID:             uuid.NewString(),
		Timestamp:      start.UTC(),
		ConversationID: conversationID,
		UserID:         req.UserID,
		Question:       req.Question,
		DatasetVersion: snap.Version,
	}

	raw, planJSON, err := s.planner.Plan(ctx, history, req.Question, dataset.ExtractSchema(snap.Dataset))
	if err != nil {
		log.Error().Err(err).Msg("Planner failed")
		answer := fmt.Sprintf(plannerFailureReply, err.Error())
		event.Error = "planner: " + err.Error()
		s.finish(ctx, req, conversationID, answer, "", &event, start)
		return &dto.AskResponse{
			ConversationID: conversationID,
			Answer:         answer,
			DatasetVersion: snap.Version,
		}, nil
	}
	event.Operator = raw.Operator

	res, err := engine.Run(raw, snap.Dataset)
	if err != nil {
		log.Error().Err(err).Str("operator", raw.Operator).Msg("Plan execution failed")
		event.Error = err.Error()
		s.publish(ctx, &event, start)
		return nil, fmt.Errorf("failed to execute %s plan: %w", raw.Operator, err)
	}
	event.Analysis = string(res.Analysis)
	event.Degraded = res.Degraded

	version := snap.Version
	if res.Analysis == plan.OpClean && res.Dataset != nil {
		version, err = s.datasets.ReplaceIf(snap.Version, res.Dataset)
		if err != nil {
			event.Error = err.Error()
			s.publish(ctx, &event, start)
			return nil, fmt.Errorf("failed to replace dataset: %w", err)
		}
	}

	if err := s.conversations.AddTurns(ctx, conversationID,
		dto.ConversationTurn{Role: "user", Content: req.Question},
		dto.ConversationTurn{Role: "model", Content: planJSON},
	); err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("Failed to record conversation turns")
	}

	answer := narrative.Explain(res)
	var charts []chart.Chart
	if (req.Visualize || chart.Requested(req.Question)) && res.Analysis == plan.OpSalesDiagnostics && res.Output != nil {
		charts = append(charts, chart.FeatureImpact(res.Output))
		answer += chartLinkText
	}
	if res.Analysis == plan.OpClean {
		answer += fmt.Sprintf(downloadLinkText, s.apiBaseURL)
	}

	s.finish(ctx, req, conversationID, answer, string(res.Analysis), &event, start)

	return &dto.AskResponse{
		ConversationID: conversationID,
		Answer:         answer,
		Result:         res,
		Charts:         charts,
		DatasetVersion: version,
	}, nil
}

// resolveConversation continues a known conversation or starts a new one.
func (s *askService) resolveConversation(ctx context.Context, id *string) (string, []dto.ConversationTurn, error) {
	if id != nil && *id != "" {
		history, err := s.conversations.GetHistory(ctx, *id)
		if err == nil {
			return *id, history, nil
		}
		if !errors.Is(err, store.ErrConversationNotFound) {
			return "", nil, fmt.Errorf("failed to load conversation: %w", err)
		}
		log.Warn().Str("conversation_id", *id).Msg("Unknown conversation, starting a new one")
	}
	newID, err := s.conversations.CreateConversation(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return newID, nil, nil
}

// finish persists the exchange and publishes its event. Neither failure reaches the caller.
func (s *askService) finish(ctx context.Context, req dto.AskRequest, conversationID, answer, analysis string, event *model.AnalysisEvent, start time.Time) {
	entry := &model.ChatLog{
		UserID:         req.UserID,
		ConversationID: conversationID,
		Question:       req.Question,
		Answer:         answer,
		Analysis:       analysis,
		CreatedAt:      start.UTC(),
	}
	if err := s.chatLogs.Save(ctx, entry); err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("Failed to persist chat log")
	}
	s.publish(ctx, event, start)
}

func (s *askService) publish(ctx context.Context, event *model.AnalysisEvent, start time.Time) {
	event.DurationMs = s.now().Sub(start).Milliseconds()
	if err := s.events.Produce(ctx, []model.AnalysisEvent{*event}); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to publish analysis event")
	}
}

func (s *askService) History(ctx context.Context, userID string, limit int) ([]model.ChatLog, error) {
	if userID == "" {
		return nil, errors.New("user_id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.chatLogs.ListByUser(ctx, userID, limit)
}
