package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// OpenRouterProvider talks to any OpenAI compatible /chat/completions endpoint.
type OpenRouterProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	SiteURL string
	AppName string
	Client  *http.Client
}

func NewOpenRouterProvider(baseURL, apiKey, model, siteURL, appName string) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	return &OpenRouterProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		SiteURL: siteURL,
		AppName: appName,
		Client:  httpClient(nil),
	}
}

type openRouterChatReq struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type openRouterChatResp struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenRouterProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return "", errors.New("openrouter: api key is required")
	}
	model := strings.TrimSpace(p.Model)
	if model == "" {
		return "", errors.New("openrouter: model is required")
	}

	headers := map[string]string{
		"Authorization": "Bearer " + p.APIKey,
		"HTTP-Referer":  p.SiteURL,
		"X-Title":       p.AppName,
	}
	var decoded openRouterChatResp
	if err := postJSON(ctx, httpClient(p.Client), p.BaseURL+"/chat/completions", headers,
		openRouterChatReq{Model: model, Messages: messages}, &decoded); err != nil {
		return "", fmt.Errorf("openrouter: %w", err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", errors.New("openrouter: " + decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("openrouter: empty response")
	}
	return decoded.Choices[0].Message.Content, nil
}
