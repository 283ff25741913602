package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/suPer8Hu/chat-history/internal/ai"
	"github.com/suPer8Hu/chat-history/internal/common"
	"github.com/suPer8Hu/chat-history/internal/events"
	"github.com/suPer8Hu/chat-history/internal/logger"
)

type Service struct {
	repo     *Repo
	registry *ai.Registry
	events   events.Publisher
	log      *logger.Logger
}

func NewService(repo *Repo, registry *ai.Registry, pub events.Publisher, log *logger.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Service{repo: repo, registry: registry, events: pub, log: log}
}

var errInvalidFormat = fmt.Errorf("%w: invalid messages format", common.ErrValidation)

// Append validates the whole batch before writing any of it. A nil batch is
// a format error; an empty one is accepted and writes nothing.
func (s *Service) Append(ctx context.Context, userID string, msgs []NewMessage) (int, error) {
	if msgs == nil {
		return 0, errInvalidFormat
	}
	for i, m := range msgs {
		if !m.Role.Valid() {
			return 0, fmt.Errorf("%w: message %d has role %q", errInvalidFormat, i, m.Role)
		}
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	if err := s.repo.Append(ctx, userID, msgs); err != nil {
		return 0, err
	}

	e := events.New(events.MessagesAppended, userID)
	e.Count = int64(len(msgs))
	events.Emit(ctx, s.events, s.log, e)
	return len(msgs), nil
}

func (s *Service) History(ctx context.Context, userID string) ([]Message, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	e := events.New(events.HistoryCleared, userID)
	e.Count = n
	events.Emit(ctx, s.events, s.log, e)
	return n, nil
}

type CompletionRequest struct {
	Provider string
	Model    string
	Messages []ai.Message
}

// Complete forwards the conversation to the configured provider. Nothing is
// persisted; clients store the exchange through Append.
func (s *Service) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("%w: messages required", common.ErrValidation)
	}
	for i, m := range req.Messages {
		switch m.Role {
		case "system", string(RoleUser), string(RoleAssistant):
		default:
			return "", fmt.Errorf("%w: message %d has role %q", errInvalidFormat, i, m.Role)
		}
	}
	if s.registry == nil {
		return "", fmt.Errorf("%w: no provider configured", common.ErrUpstreamProvider)
	}

	provider, err := s.registry.Get(ctx, req.Provider, req.Model)
	if err != nil {
		if errors.Is(err, ai.ErrUnknownProvider) {
			return "", fmt.Errorf("%w: %v", common.ErrValidation, err)
		}
		return "", fmt.Errorf("%w: %v", common.ErrUpstreamProvider, err)
	}

	reply, err := provider.Chat(ctx, req.Messages)
	if err != nil {
		s.log.Warn("Chat service: completion failed", "provider", req.Provider, "model", req.Model, "error", err)
		return "", fmt.Errorf("%w: the assistant is unavailable, please try again", common.ErrUpstreamProvider)
	}
	return reply, nil
}
