package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/chat-history/internal/ai"
	"github.com/suPer8Hu/chat-history/internal/chat"
	"github.com/suPer8Hu/chat-history/internal/common"
)

type appendReq struct {
	Messages []chat.NewMessage `json:"messages"`
}

// AppendMessages handles POST /api/chats. Messages are always stored under
// the token's user id.
func (h *Handler) AppendMessages(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req appendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, common.CodeValidation, "invalid messages format")
		return
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()
	n, err := h.ChatSvc.Append(ctx, uid, req.Messages)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Message(c, http.StatusCreated, "chat history saved successfully", gin.H{"saved": n})
}

func (h *Handler) OwnHistory(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()
	msgs, err := h.ChatSvc.History(ctx, uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) ClearHistory(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()
	n, err := h.ChatSvc.Clear(ctx, uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Message(c, http.StatusOK, "chat history cleared", gin.H{"deleted": n})
}

type completionReq struct {
	Provider string       `json:"provider"`
	Model    string       `json:"model"`
	Messages []ai.Message `json:"messages"`
}

type completionChoice struct {
	Index   int        `json:"index"`
	Message ai.Message `json:"message"`
}

// Completions handles POST /api/chat/completions in the OpenAI response shape.
func (h *Handler) Completions(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		unauthorized(c)
		return
	}

	var req completionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidJSON(c)
		return
	}

	reply, err := h.ChatSvc.Complete(c.Request.Context(), chat.CompletionRequest{
		Provider: req.Provider,
		Model:    req.Model,
		Messages: req.Messages,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "chat.completion",
		"model":  req.Model,
		"choices": []completionChoice{{
			Message: ai.Message{Role: string(chat.RoleAssistant), Content: reply},
		}},
	})
}
