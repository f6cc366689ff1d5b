package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/time/rate"

	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
)

// Options configures a Client. Zero values fall back to the listed
// defaults.
type Options struct {
	APIKey          string
	EmbeddingModel  string  // default text-embedding-3-small
	CompletionModel string  // default gpt-4o-mini
	Temperature     float64 // default 0.7
	MaxTokens       int     // default 2000
	EmbedBatchSize  int     // default 64
}

// Client is the caller-held handle to the embedding and completion
// capabilities. Construct it once per process and pass it by
// reference; it is safe for concurrent use.
type Client struct {
	api             openai.Client
	embeddingModel  string
	completionModel shared.ChatModel
	temperature     float64
	maxTokens       int
	batchSize       int
	pacer           *rate.Limiter
	log             logger.Logger
}

// NewClient builds a Client from options.
func NewClient(opts Options, log logger.Logger) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if opts.EmbeddingModel == "" {
		opts.EmbeddingModel = "text-embedding-3-small"
	}
	if opts.CompletionModel == "" {
		opts.CompletionModel = "gpt-4o-mini"
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2000
	}
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = 64
	}

	return &Client{
		api:             openai.NewClient(option.WithAPIKey(opts.APIKey)),
		embeddingModel:  opts.EmbeddingModel,
		completionModel: shared.ChatModel(opts.CompletionModel),
		temperature:     opts.Temperature,
		maxTokens:       opts.MaxTokens,
		batchSize:       opts.EmbedBatchSize,
		pacer:           rate.NewLimiter(rate.Limit(embedTokensPerSecond), embedBurstTokens),
		log:             log,
	}, nil
}

// Verify sends a minimal completion request and classifies the
// failure, if any. Used as a startup self-test so credential and
// connectivity problems surface before the first review.
func (c *Client) Verify(ctx context.Context) error {
	_, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.completionModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("ping"),
		},
		MaxCompletionTokens: openai.Int(1),
	})
	if err != nil {
		return classify(err, "completion")
	}
	c.log.Debug("Completion capability verified with model %s", c.completionModel)
	return nil
}
