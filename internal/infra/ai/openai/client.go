package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bryanwahyu/datasense/internal/domain/ai"
	"github.com/bryanwahyu/datasense/internal/infra/ai/prompt"
)

const (
	defaultModel      = "llama-3.3-70b-versatile"
	describeMaxTokens = 150
	describeTemp      = 0.3
	chatMaxTokens     = 1024
	chatTemp          = 0.7
)

// Client talks to any OpenAI-compatible endpoint (OpenAI, Groq, vLLM, ...).
type Client struct {
	api    *openai.Client
	model  string
	logger *zap.Logger
}

var _ ai.Client = (*Client)(nil)

// Config for NewClient. BaseURL empty means api.openai.com.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:    openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger.Named("llm"),
	}
}

func (c *Client) DescribeField(ctx context.Context, fc ai.FieldContext) (string, error) {
	return c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.FieldSystemPrompt()},
		{Role: openai.ChatMessageRoleUser, Content: prompt.FieldUserPrompt(fc)},
	}, describeMaxTokens, describeTemp)
}

func (c *Client) Chat(ctx context.Context, req ai.ChatRequest) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: prompt.ChatSystemPrompt(req.FileName, req.Fields),
	})
	for _, m := range req.History {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Message})
	return c.complete(ctx, msgs, chatMaxTokens, chatTemp)
}

func (c *Client) complete(ctx context.Context, msgs []openai.ChatCompletionMessage, maxTokens int, temp float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temp,
	}
	// reasoning models (o1/o3/o4/gpt-5*) only accept MaxCompletionTokens
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("chat completion failed",
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", classify(err)
	}
	c.logger.Debug("chat completion",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	if len(resp.Choices) == 0 {
		return "", ai.ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ai.ErrEmptyResponse
	}
	return content, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// classify maps provider rate limiting onto ai.ErrQuotaExceeded.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", ai.ErrQuotaExceeded, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, reqErr.Err)
	}
	return fmt.Errorf("failed to create chat completion: %w", err)
}
