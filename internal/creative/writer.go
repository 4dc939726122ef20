package creative

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/tgcreative/internal/retry"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	// DefaultChatBaseURL is the DeepSeek OpenAI-compatible endpoint.
	DefaultChatBaseURL = "https://api.deepseek.com/v1"
	DefaultChatModel   = "deepseek-chat"
	DefaultMaxTokens   = 1024

	defaultAnthropicModel = "claude-haiku-4-5"

	chatTimeout = 90 * time.Second
)

// ErrNotConfigured means the provider API key is missing.
var ErrNotConfigured = errors.New("creative: provider api key is not configured")

// Writer completes one chat exchange.
type Writer interface {
	Complete(ctx context.Context, system, user string, temperature float64) (string, error)
}

// ChatConfig selects and configures a Writer.
type ChatConfig struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	HTTPClient *http.Client
	Retry      retry.Policy
	Logger     logrus.FieldLogger
}

// NewWriter builds the Writer for cfg.Provider (openai when empty).
func NewWriter(cfg ChatConfig) (Writer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: chatTimeout}
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	cfg.Retry.Logger = cfg.Logger

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		return NewOpenAIWriter(cfg), nil
	case ProviderAnthropic:
		return NewAnthropicWriter(cfg), nil
	default:
		return nil, fmt.Errorf("creative: unknown provider %q", cfg.Provider)
	}
}

// OpenAIWriter talks to any OpenAI-compatible chat completion API.
type OpenAIWriter struct {
	client    openai.Client
	model     string
	maxTokens int
	policy    retry.Policy
}

// NewOpenAIWriter creates a writer; BaseURL and Model default to DeepSeek.
func NewOpenAIWriter(cfg ChatConfig) *OpenAIWriter {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultChatBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(base, "/") + "/"),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &OpenAIWriter{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: cfg.MaxTokens,
		policy:    cfg.Retry,
	}
}

// Complete sends system and user messages and returns the trimmed answer.
func (w *OpenAIWriter) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	return retry.Do(ctx, w.policy, func(ctx context.Context) (string, error) {
		params := openai.ChatCompletionNewParams{
			Model: openai.ChatModel(w.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(user),
			},
			Temperature: openai.Float(temperature),
		}
		if w.maxTokens > 0 {
			params.MaxTokens = openai.Int(int64(w.maxTokens))
		}

		resp, err := w.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", classify(fmt.Errorf("chat api error: %w", err))
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no response from chat api")
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	})
}

// AnthropicWriter talks to the Anthropic Messages API.
type AnthropicWriter struct {
	client    anthropic.Client
	model     string
	maxTokens int
	policy    retry.Policy
}

// NewAnthropicWriter creates a writer; Model defaults to Claude Haiku 4.5.
func NewAnthropicWriter(cfg ChatConfig) *AnthropicWriter {
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, anthropicoption.WithHTTPClient(cfg.HTTPClient))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &AnthropicWriter{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		policy:    cfg.Retry,
	}
}

// Complete sends one user turn under the system prompt.
func (w *AnthropicWriter) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	return retry.Do(ctx, w.policy, func(ctx context.Context) (string, error) {
		resp, err := w.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(w.model),
			MaxTokens: int64(w.maxTokens),
			System: []anthropic.TextBlockParam{
				{Text: system},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
			},
			Temperature: anthropic.Float(temperature),
		})
		if err != nil {
			return "", classify(fmt.Errorf("anthropic api error: %w", err))
		}

		var b strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				b.WriteString(block.Text)
			}
		}
		if b.Len() == 0 {
			return "", errors.New("no response from anthropic")
		}
		return strings.TrimSpace(b.String()), nil
	})
}

// classify marks client errors other than rate limiting as permanent.
func classify(err error) error {
	status := 0
	var oaErr *openai.Error
	var anErr *anthropic.Error
	switch {
	case errors.As(err, &oaErr):
		status = oaErr.StatusCode
	case errors.As(err, &anErr):
		status = anErr.StatusCode
	}
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}
