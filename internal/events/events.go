package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/suPer8Hu/chat-history/internal/logger"
)

type Type string

const (
	UserCreated      Type = "user.created"
	MessagesAppended Type = "messages.appended"
	HistoryCleared   Type = "history.cleared"
)

type Event struct {
	ID     string    `json:"id"`
	Type   Type      `json:"type"`
	UserID string    `json:"user_id"`
	Count  int64     `json:"count,omitempty"`
	Method string    `json:"method,omitempty"`
	At     time.Time `json:"at"`
}

func New(t Type, userID string) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   t,
		UserID: userID,
		At:     time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Emit publishes e and only logs on failure; domain writes never fail
// because the broker is unavailable.
func Emit(ctx context.Context, p Publisher, log *logger.Logger, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil && log != nil {
		log.Warn("event publish failed", "type", e.Type, "user_id", e.UserID, "error", err)
	}
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
