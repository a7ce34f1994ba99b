package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	AnthropicBaseURL   = "https://api.anthropic.com/v1/"
	HuggingFaceBaseURL = "https://router.huggingface.co/v1"

	maxOutputTokens int64 = 2048
)

// Client produces a single completion for a prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient calls an OpenAI-compatible Chat Completions endpoint.
type OpenAIClient struct {
	client openai.Client
	model  string
}

type OpenAIClientConfig struct {
	APIKey string
	Model  string
	// BaseURL is empty for the OpenAI API itself.
	BaseURL string
	Timeout time.Duration
}

func NewOpenAIClient(cfg OpenAIClientConfig) (*OpenAIClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("model is empty")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are handled by RetryPolicy.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is empty")
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(0),
		MaxCompletionTokens: openai.Int(maxOutputTokens),
	})
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("response has no choices")
	}

	choice := resp.Choices[0]

	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", fmt.Errorf("output text is missing (finish reason = %s)", choice.FinishReason)
	}

	return content, nil
}
