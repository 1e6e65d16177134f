// Package anthropic adapts the Claude Messages API to the ai.Client port.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/domain/ai"
	"github.com/bryanwahyu/datasense/internal/infra/ai/prompt"
)

const (
	defaultModel      = "claude-sonnet-4-5-20250929"
	describeMaxTokens = 150
	chatMaxTokens     = 1024
)

type Client struct {
	api    *anthropic.Client
	model  string
	logger *zap.Logger
}

var _ ai.Client = (*Client)(nil)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, anthropic.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:    anthropic.NewClient(cfg.APIKey, opts...),
		model:  model,
		logger: logger.Named("llm"),
	}
}

func (c *Client) DescribeField(ctx context.Context, fc ai.FieldContext) (string, error) {
	return c.complete(ctx, prompt.FieldSystemPrompt(), []anthropic.Message{
		anthropic.NewUserTextMessage(prompt.FieldUserPrompt(fc)),
	}, describeMaxTokens, 0.3)
}

func (c *Client) Chat(ctx context.Context, req ai.ChatRequest) (string, error) {
	msgs := make([]anthropic.Message, 0, len(req.History)+1)
	for _, m := range req.History {
		// the conversation has to open with a user turn
		if len(msgs) == 0 && m.Role != ai.RoleUser {
			continue
		}
		if m.Role == ai.RoleAssistant {
			msgs = append(msgs, anthropic.NewAssistantTextMessage(m.Content))
		} else {
			msgs = append(msgs, anthropic.NewUserTextMessage(m.Content))
		}
	}
	msgs = append(msgs, anthropic.NewUserTextMessage(req.Message))
	return c.complete(ctx, prompt.ChatSystemPrompt(req.FileName, req.Fields), msgs, chatMaxTokens, 0.7)
}

func (c *Client) complete(ctx context.Context, system string, msgs []anthropic.Message, maxTokens int, temp float32) (string, error) {
	start := time.Now()
	resp, err := c.api.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      system,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		c.logger.Warn("messages request failed",
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", classify(err)
	}
	c.logger.Debug("messages request",
		zap.String("model", c.model),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	text := strings.TrimSpace(firstText(resp))
	if text == "" {
		return "", ai.ErrEmptyResponse
	}
	return text, nil
}

func firstText(resp anthropic.MessagesResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}

func classify(err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) && apiErr.IsRateLimitErr() {
		return fmt.Errorf("%w: %s", ai.ErrQuotaExceeded, apiErr.Message)
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, reqErr.Err)
	}
	return fmt.Errorf("create message: %w", err)
}
