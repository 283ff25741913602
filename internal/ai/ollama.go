package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type OllamaProvider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3:latest"
	}
	return &OllamaProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  httpClient(nil),
	}
}

type ollamaChatReq struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResp struct {
	Message Message `json:"message"`
	Error   string  `json:"error,omitempty"`
}

func (p *OllamaProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	var decoded ollamaChatResp
	err := postJSON(ctx, httpClient(p.Client), p.BaseURL+"/api/chat", nil,
		ollamaChatReq{Model: p.Model, Messages: messages}, &decoded)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	if decoded.Error != "" {
		return "", errors.New("ollama: " + decoded.Error)
	}
	return decoded.Message.Content, nil
}
