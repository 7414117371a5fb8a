package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hybridrag/hybridrag/types"
)

// OpenAIConfig configures the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	Dimensions     int
	Temperature    float32
	MaxTokens      int
	Timeout        time.Duration
}

// OpenAIClient implements Completer and Embedder on the OpenAI API. Any
// OpenAI-compatible endpoint works through BaseURL.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	logger *zap.Logger
}

var (
	_ Completer = (*OpenAIClient)(nil)
	_ Embedder  = (*OpenAIClient)(nil)
)

// NewOpenAIClient creates a client. The API key falls back to the
// OPENAI_API_KEY environment variable.
func NewOpenAIClient(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, types.NewError(types.ErrResourceUnavailable, "llm api key not provided")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1536
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		logger: logger.With(zap.String("component", "llm")),
	}, nil
}

// Complete sends a chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, opts *CompleteOptions) (*Completion, error) {
	if opts == nil {
		opts = &CompleteOptions{}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if opts.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	temperature := c.cfg.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := c.cfg.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, types.NewError(types.ErrTimeout, "llm completion timed out").WithCause(err)
		}
		return nil, types.NewError(types.ErrResourceUnavailable, "llm completion failed").WithCause(err)
	}
	if len(resp.Choices) == 0 {
		return nil, types.NewError(types.ErrResourceUnavailable, "llm returned no choices")
	}

	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	if usage.TotalTokens == 0 {
		// Some compatible endpoints omit usage.
		usage.PromptTokens = CountTokens(c.cfg.Model, prompt)
		usage.CompletionTokens = CountTokens(c.cfg.Model, resp.Choices[0].Message.Content)
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	usage.CostUSD = costFor(c.cfg.Model, usage.PromptTokens, usage.CompletionTokens)

	c.logger.Debug("completion",
		zap.String("model", c.cfg.Model),
		zap.Int("tokens", usage.TotalTokens),
		zap.Duration("latency", time.Since(start)))

	return &Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: c.cfg.Model,
		Usage: usage,
	}, nil
}

// Embed produces an embedding for a single text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
		Input: []string{text},
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, types.NewError(types.ErrTimeout, "embedding timed out").WithCause(err)
		}
		return nil, types.NewError(types.ErrResourceUnavailable, "embedding failed").WithCause(err)
	}
	if len(resp.Data) == 0 {
		return nil, types.NewError(types.ErrResourceUnavailable, "embedding response empty")
	}

	vec := make([]float64, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float64(v)
	}
	if len(vec) != c.cfg.Dimensions {
		return nil, types.NewError(types.ErrInternal,
			fmt.Sprintf("embedding dimension mismatch: got %d, want %d", len(vec), c.cfg.Dimensions))
	}
	return vec, nil
}

// Dimensions returns the configured embedding dimensionality.
func (c *OpenAIClient) Dimensions() int { return c.cfg.Dimensions }
