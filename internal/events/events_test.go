package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/suPer8Hu/chat-history/internal/logger"
)

func TestEmit(t *testing.T) {
	rec := &Recorder{}
	e := New(MessagesAppended, "user-1")
	e.Count = 2

	Emit(context.Background(), rec, logger.Noop(), e)

	got := rec.Events()
	if assert.Len(t, got, 1) {
		assert.Equal(t, MessagesAppended, got[0].Type)
		assert.Equal(t, int64(2), got[0].Count)
		assert.NotEmpty(t, got[0].ID)
		assert.False(t, got[0].At.IsZero())
	}
}

func TestEmit_SwallowsErrors(t *testing.T) {
	rec := &Recorder{Err: errors.New("broker down")}

	assert.NotPanics(t, func() {
		Emit(context.Background(), rec, logger.Noop(), New(UserCreated, "u"))
		Emit(context.Background(), nil, nil, New(UserCreated, "u"))
	})
	assert.Empty(t, rec.Events())
}
