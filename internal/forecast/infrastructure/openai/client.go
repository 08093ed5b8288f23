package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	forecastapp "campus-pulse/internal/forecast/application"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 200
)

// ErrNoChoices indicates a completion without any message.
var ErrNoChoices = errors.New("openai: no choices in completion")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Config holds chat-completion settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	http        *resty.Client
	model       string
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// NewClient constructs a Client. Empty fields fall back to defaults.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: empty api key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:        httpClient,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}, nil
}

// Generate implements forecastapp.Generator.
func (c *Client) Generate(ctx context.Context, prompt forecastapp.Prompt) (string, error) {
	request := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var (
		response chatResponse
		failure  apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		SetError(&failure).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai: request: %w", err)
	}
	if resp.IsError() {
		c.logger.Warn("chat completion rejected",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("type", failure.Error.Type),
		)
		if failure.Error.Message != "" {
			return "", fmt.Errorf("openai: status %d: %s", resp.StatusCode(), failure.Error.Message)
		}
		return "", fmt.Errorf("openai: status %d", resp.StatusCode())
	}
	if len(response.Choices) == 0 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
