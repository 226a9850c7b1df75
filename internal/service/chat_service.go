package service

import (
	"context"
	"fmt"
	"time"

	"accident-advisor-be/internal/dto"
	"accident-advisor-be/internal/entity"
	"accident-advisor-be/internal/pkg/logger"
	"accident-advisor-be/internal/repository/specification"
	"accident-advisor-be/internal/repository/unitofwork"
	"accident-advisor-be/pkg/advisor"
	"accident-advisor-be/pkg/events"

	"github.com/google/uuid"
)

// EventPublisher sends domain events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// IChatService defines the advisory chat service interface
type IChatService interface {
	CreateSession(ctx context.Context, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, clientKey string) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	Ask(ctx context.Context, request *dto.AskRequest) (*dto.AskResponse, error)
	DeleteSession(ctx context.Context, request *dto.DeleteSessionRequest) error
}

// chatService owns the durable transcript and delegates query handling to
// the advisory pipeline.
type chatService struct {
	uowFactory   unitofwork.RepositoryFactory
	orchestrator *advisor.Orchestrator
	publisher    EventPublisher
	log          logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	orchestrator *advisor.Orchestrator,
	publisher EventPublisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:   uowFactory,
		orchestrator: orchestrator,
		publisher:    publisher,
		log:          log,
	}
}

func (cs *chatService) CreateSession(ctx context.Context, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	title := request.Title
	if title == "" {
		title = "새 상담"
	}

	session := &entity.ChatSession{
		Id:        uuid.New(),
		ClientKey: request.ClientKey,
		Title:     title,
		CreatedAt: time.Now(),
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}

	cs.log.Info("chat", "Chat session created", map[string]interface{}{
		"session_id": session.Id.String(),
	})

	return &dto.CreateSessionResponse{Id: session.Id}, nil
}

func (cs *chatService) GetAllSessions(ctx context.Context, clientKey string) ([]*dto.GetAllSessionsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.ByClientKey{ClientKey: clientKey},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, len(sessions))
	for i, s := range sessions {
		response[i] = &dto.GetAllSessionsResponse{
			Id:        s.Id,
			Title:     s.Title,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		}
	}
	return response, nil
}

func (cs *chatService) GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("chat session not found")
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	history := make([]*dto.GetChatHistoryResponse, len(messages))
	for i, m := range messages {
		history[i] = &dto.GetChatHistoryResponse{
			Id:        m.Id,
			Role:      m.Role,
			Content:   m.Content,
			Category:  m.Category,
			Degraded:  m.Degraded,
			CreatedAt: m.CreatedAt,
		}
	}
	return history, nil
}

// Ask runs one advisory turn and persists the transcript. The advisory
// pipeline owns in-memory conversational context; this layer owns the
// durable record.
func (cs *chatService) Ask(ctx context.Context, request *dto.AskRequest) (*dto.AskResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: request.ChatSessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("chat session not found")
	}

	answer, err := cs.orchestrator.Handle(ctx, request.Question, session.Id.String())
	if err != nil {
		return nil, err
	}

	if persistErr := cs.persistTurn(ctx, session.Id, request.Question, answer); persistErr != nil {
		// transcript gap only, the answer is still returned
		cs.log.Error("chat", "Failed to persist chat turn", map[string]interface{}{
			"session_id": session.Id.String(),
			"error":      persistErr.Error(),
		})
	}

	cs.publishTurnCompleted(ctx, session.Id, answer)

	return toAskResponse(session.Id, answer), nil
}

func (cs *chatService) persistTurn(ctx context.Context, sessionId uuid.UUID, question string, answer *advisor.Answer) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	now := time.Now()
	messages := []*entity.ChatMessage{
		{
			Id:            uuid.New(),
			ChatSessionId: sessionId,
			Role:          "user",
			Content:       question,
			Category:      string(answer.Category),
			CreatedAt:     now,
		},
		{
			Id:            uuid.New(),
			ChatSessionId: sessionId,
			Role:          "assistant",
			Content:       answer.Text,
			Category:      string(answer.Category),
			Confidence:    answer.Confidence,
			Degraded:      answer.Degraded,
			LatencyMs:     answer.Latency.TotalMs,
			CreatedAt:     now,
		},
	}

	if err := uow.ChatMessageRepository().CreateBulk(ctx, messages); err != nil {
		return err
	}
	return uow.Commit()
}

func (cs *chatService) publishTurnCompleted(ctx context.Context, sessionId uuid.UUID, answer *advisor.Answer) {
	if cs.publisher == nil {
		return
	}
	event := events.NewTurnCompleted(
		sessionId.String(),
		string(answer.Category),
		answer.Confidence,
		answer.Degraded,
		answer.GenerationCalls,
		answer.Latency.TotalMs,
	)
	if err := cs.publisher.Publish(ctx, event); err != nil {
		cs.log.Warn("chat", "Failed to publish turn completed event", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}
}

func (cs *chatService) DeleteSession(ctx context.Context, request *dto.DeleteSessionRequest) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: request.ChatSessionId})
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("chat session not found")
	}

	return uow.ChatSessionRepository().Delete(ctx, session.Id)
}

func toAskResponse(sessionId uuid.UUID, answer *advisor.Answer) *dto.AskResponse {
	sources := make([]dto.SourceDTO, len(answer.Sources))
	for i, s := range answer.Sources {
		sources[i] = dto.SourceDTO{
			Id:       s.ID,
			Excerpt:  s.Excerpt,
			Score:    s.Score,
			Strategy: string(s.Strategy),
		}
	}

	var usage map[string]int
	if len(answer.CategoryUsage) > 0 {
		usage = make(map[string]int, len(answer.CategoryUsage))
		for cat, count := range answer.CategoryUsage {
			usage[string(cat)] = count
		}
	}

	return &dto.AskResponse{
		ChatSessionId: sessionId,
		Answer:        answer.Text,
		Category:      string(answer.Category),
		Confidence:    answer.Confidence,
		Method:        string(answer.Method),
		Sources:       sources,
		CategoryUsage: usage,
		Latency: dto.LatencyDTO{
			ClassificationMs: answer.Latency.ClassificationMs,
			RetrievalMs:      answer.Latency.RetrievalMs,
			GenerationMs:     answer.Latency.GenerationMs,
			TotalMs:          answer.Latency.TotalMs,
		},
		GenerationCalls: answer.GenerationCalls,
		Degraded:        answer.Degraded,
	}
}
