package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/suPer8Hu/chat-history/internal/events"
	"github.com/suPer8Hu/chat-history/internal/logger"
	"github.com/suPer8Hu/chat-history/internal/store/rabbitmq"
)

// Sink appends one JSON line per domain event.
type Sink struct {
	log *logger.Logger
}

func NewSink(w io.Writer) *Sink {
	return &Sink{log: logger.NewWithWriter(w, "info", "json")}
}

func (s *Sink) Handle(_ context.Context, body []byte) error {
	var e events.Event
	if err := json.Unmarshal(body, &e); err != nil {
		return rabbitmq.PermanentError{Err: fmt.Errorf("decode event: %w", err)}
	}
	switch e.Type {
	case events.UserCreated, events.MessagesAppended, events.HistoryCleared:
	default:
		return rabbitmq.PermanentError{Err: fmt.Errorf("unknown event type %q", e.Type)}
	}
	if e.UserID == "" {
		return rabbitmq.PermanentError{Err: fmt.Errorf("event %s without user id", e.ID)}
	}

	args := []any{"event_id", e.ID, "user_id", e.UserID, "at", e.At}
	if e.Count > 0 {
		args = append(args, "count", e.Count)
	}
	if e.Method != "" {
		args = append(args, "method", e.Method)
	}
	s.log.Info(string(e.Type), args...)
	return nil
}
