// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/petar-djukic/vibe-blender/pkg/types"
)

const (
	defaultTimeout   = 300 * time.Second
	defaultMaxTokens = 4096
	maxRetryAttempts = 3
)

// baseRetryDelay is a variable so tests can shrink the backoff.
var baseRetryDelay = 1 * time.Second

// ErrLLMFailure indicates the LLM call failed (network, auth, rate limit).
var ErrLLMFailure = errors.New("LLM failure")

// Image is a reference or render image sent to a vision-capable model.
type Image struct {
	Format string // "png", "jpeg", "gif", or "webp"
	Data   []byte
}

// Prompter is the LLM surface the agents depend on. Implemented by
// Client; mocked in tests.
type Prompter interface {
	// Generate sends a text-only prompt and returns the full response.
	Generate(ctx context.Context, system, prompt string) (string, error)
	// AnalyzeImages sends a prompt together with images to a
	// vision-capable model and returns the full response.
	AnalyzeImages(ctx context.Context, system, prompt string, images []Image) (string, error)
}

// ClientConfig configures the Bedrock LLM client.
type ClientConfig struct {
	ModelID   string        // Bedrock model ID (required)
	Region    string        // AWS region (required)
	Profile   string        // AWS credential profile (optional, uses default chain if empty)
	Timeout   time.Duration // Request timeout (default 300s)
	MaxTokens int           // Max tokens for the response (default 4096)

	// OnToken, when set, receives each response token as it streams in.
	// Used by the CLI to show generation progress.
	OnToken func(token string)
}

// BedrockAPI abstracts the Bedrock ConverseStream call for testing.
type BedrockAPI interface {
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// Client wraps the AWS Bedrock runtime client for LLM access.
type Client struct {
	api       BedrockAPI
	modelID   string
	timeout   time.Duration
	maxTokens int
	onToken   func(string)
	usage     types.TokenUsage // Cumulative usage across calls
}

// NewClient creates a new Bedrock LLM client from the given configuration.
// It initializes the AWS SDK client using the standard credential chain.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("%w: model ID is required", ErrLLMFailure)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("%w: region is required", ErrLLMFailure)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config: %v", ErrLLMFailure, err)
	}

	return newClient(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

// NewClientWithAPI creates a client with a pre-configured API implementation.
// Used for testing with mock clients.
func NewClientWithAPI(api BedrockAPI, cfg ClientConfig) *Client {
	return newClient(api, cfg)
}

func newClient(api BedrockAPI, cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		api:       api,
		modelID:   cfg.ModelID,
		timeout:   timeout,
		maxTokens: maxTokens,
		onToken:   cfg.OnToken,
	}
}

// Generate sends a text-only prompt via ConverseStream and returns the
// complete response text.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	return c.converse(ctx, systemBlocks(system), []brtypes.Message{userMessage(prompt)})
}

// AnalyzeImages sends a prompt with attached images and returns the
// complete response text.
func (c *Client) AnalyzeImages(ctx context.Context, system, prompt string, images []Image) (string, error) {
	msg, err := userMessageWithImages(prompt, images)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMFailure, err)
	}
	return c.converse(ctx, systemBlocks(system), []brtypes.Message{msg})
}

// CumulativeUsage returns the total token usage across all calls.
func (c *Client) CumulativeUsage() types.TokenUsage {
	return c.usage
}

// converse runs one streamed conversation turn, forwarding tokens to the
// OnToken callback while accumulating the full text.
func (c *Client) converse(ctx context.Context, system []brtypes.SystemContentBlock, messages []brtypes.Message) (string, error) {
	tokenCh := make(chan string, 64)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for token := range tokenCh {
			if c.onToken != nil {
				c.onToken(token)
			}
		}
	}()

	response, err := c.sendWithRetry(ctx, system, messages, tokenCh)
	<-drained
	if err != nil {
		return "", err
	}

	c.usage.InputTokens += response.Usage.InputTokens
	c.usage.OutputTokens += response.Usage.OutputTokens
	return response.FullText, nil
}

// sendWithRetry calls ConverseStream with exponential backoff retry for
// rate limit errors. tokenCh is closed on every return path: by
// consumeStream once streaming starts, here otherwise.
func (c *Client) sendWithRetry(ctx context.Context, system []brtypes.SystemContentBlock, messages []brtypes.Message, tokenCh chan<- string) (*types.StreamResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetryAttempts; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				close(tokenCh)
				return nil, fmt.Errorf("%w: context cancelled during retry: %v", ErrLLMFailure, ctx.Err())
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)

		input := &bedrockruntime.ConverseStreamInput{
			ModelId:  aws.String(c.modelID),
			System:   system,
			Messages: messages,
			InferenceConfig: &brtypes.InferenceConfiguration{
				MaxTokens: aws.Int32(int32(c.maxTokens)),
			},
		}

		output, err := c.api.ConverseStream(callCtx, input)
		if err != nil {
			cancel()

			var throttle *brtypes.ThrottlingException
			if errors.As(err, &throttle) {
				lastErr = err
				continue
			}

			close(tokenCh)
			return nil, c.classifyError(err)
		}

		stream := output.GetStream()
		response, err := consumeStream(callCtx, stream, tokenCh)
		cancel()
		if err != nil {
			return nil, c.classifyError(err)
		}
		response.Retries = attempt
		return response, nil
	}

	close(tokenCh)
	return nil, fmt.Errorf("%w: rate limited after %d retries: %v", ErrLLMFailure, maxRetryAttempts, lastErr)
}

// classifyError wraps Bedrock errors into ErrLLMFailure with descriptive messages.
func (c *Client) classifyError(err error) error {
	var accessDenied *brtypes.AccessDeniedException
	if errors.As(err, &accessDenied) {
		return fmt.Errorf("%w: credential or permission issue: %v", ErrLLMFailure, err)
	}

	var notFound *brtypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: model not found: %s", ErrLLMFailure, c.modelID)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out after %s", ErrLLMFailure, c.timeout)
	}

	return fmt.Errorf("%w: %v", ErrLLMFailure, err)
}
