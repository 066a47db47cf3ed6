/**
 * @description
 * This package is a thin client for an OpenAI-compatible chat-completion API
 * (OpenRouter in production). It adapts the go-openai SDK to the app
 * Completer port and normalises rate-limit responses.
 *
 * @dependencies
 * - github.com/sashabaranov/go-openai: OpenAI-compatible API client.
 */
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/adityagupta7711/Meal-planner/internal/app"
	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

const defaultTimeout = 60 * time.Second

// Client calls the chat-completion endpoint.
type Client struct {
	api *openai.Client
}

// NewClient creates a client for the API at baseURL authenticated with apiKey.
func NewClient(apiKey, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
		cfg.BaseURL = strings.TrimSuffix(trimmed, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	return &Client{api: openai.NewClientWithConfig(cfg)}
}

// Complete sends req as a single user message and returns the first choice.
// HTTP 429 responses are reported as domain.ErrRateLimited.
func (c *Client) Complete(ctx context.Context, req app.CompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		if isRateLimited(err) {
			return "", fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", &domain.GenerationError{Reason: "no choices in completion response"}
	}
	return resp.Choices[0].Message.Content, nil
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
