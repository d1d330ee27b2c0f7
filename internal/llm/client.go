// Package llm provides the text-generation collaborator used for query
// routing support, SQL synthesis and answer synthesis.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultTimeout is the per-call timeout for completion requests.
	DefaultTimeout = 60 * time.Second

	// MaxRetries is the maximum number of retries on rate-limit errors.
	MaxRetries = 3

	// BaseBackoff is the base duration for exponential backoff.
	BaseBackoff = 2 * time.Second

	// MaxBackoff caps the exponential backoff wait.
	MaxBackoff = 32 * time.Second
)

var (
	// ErrAPIKeyNotSet indicates the GROQ_API_KEY environment variable is missing.
	ErrAPIKeyNotSet = errors.New("LLM API key not set: please set GROQ_API_KEY environment variable")

	// ErrMaxRetriesExceeded indicates the rate-limit retry budget was exhausted.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// CompletionRequest describes one text-generation call.
type CompletionRequest struct {
	System      string  // optional system instruction
	Prompt      string  // user content
	Model       string  // overrides the client default when set
	Temperature float64 // 0 means provider default
	MaxTokens   int     // output ceiling, 0 means provider default
}

// Generator is the completion interface consumed by the pipelines.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Client is a Generator backed by an OpenAI-compatible chat completions API.
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// Config holds client construction settings.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewClient creates a new Client. The API key is read from GROQ_API_KEY.
func NewClient(cfg Config) (*Client, error) {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: timeout,
	}, nil
}

// ModelName returns the default model name.
func (c *Client) ModelName() string {
	return c.model
}

// Complete generates a completion, retrying rate-limit errors with capped
// exponential backoff. All other failures return immediately.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * BaseBackoff
			if backoff > MaxBackoff {
				backoff = MaxBackoff
			}

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return "", fmt.Errorf("completion call failed: %w", err)
		}

		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("no completion choices returned")
		}

		return completion.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}

	return false
}

var _ Generator = (*Client)(nil)
