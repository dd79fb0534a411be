// Package relay performs the actual inference calls against the upstream
// provider, in single-shot and streaming form.
//
// DESIGN: The relay is credential-agnostic; the key for each call arrives as
// an argument and is never stored. Upstream failures are normalized into
// UpstreamError so the transport layer can map them onto the public error
// taxonomy without knowing the provider's SDK types. Usage reporting prefers
// provider-returned counts and falls back to local token estimates.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/satmarket/assistant-gateway/internal/utils"
)

// Message is one conversation turn sent upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is the token accounting for one completed call.
type Usage struct {
	InputTokens  int  `json:"inputTokens"`
	OutputTokens int  `json:"outputTokens"`
	TotalTokens  int  `json:"totalTokens"`
	Estimated    bool `json:"estimated,omitempty"`
}

// Request is one inference call.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Result is the outcome of a single-shot completion.
type Result struct {
	Content string
	Usage   Usage
}

// Event is one element of a streaming completion. Exactly one terminal event
// (Usage set, or Err set) is delivered before the channel closes.
type Event struct {
	Content string
	Usage   *Usage
	Err     error
}

// UpstreamError is a provider-side failure with its HTTP status.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
}

// ErrTimeout marks a call that exceeded the upstream deadline.
var ErrTimeout = errors.New("relay: upstream timeout")

// Client relays completions to an OpenAI-compatible endpoint.
type Client struct {
	baseURL     string
	timeout     time.Duration
	temperature float32
}

// New creates a relay client against baseURL.
func New(baseURL string, timeout time.Duration, temperature float32) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout, temperature: temperature}
}

func (c *Client) api(key string) *openai.Client {
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = c.baseURL
	return openai.NewClientWithConfig(cfg)
}

func (c *Client) buildRequest(req Request, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	temp := req.Temperature
	if temp == 0 {
		temp = c.temperature
	}
	out := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: temp,
	}
	if stream {
		out.Stream = true
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return out
}

// Complete performs a single-shot completion.
func (c *Client) Complete(ctx context.Context, key string, req Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api(key).CreateChatCompletion(ctx, c.buildRequest(req, false))
	if err != nil {
		return Result{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, &UpstreamError{StatusCode: 502, Message: "empty choices in upstream response"}
	}

	content := resp.Choices[0].Message.Content
	usage := Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
	if usage.TotalTokens == 0 {
		usage = c.estimateUsage(req, content)
	}
	return Result{Content: content, Usage: usage}, nil
}

// Stream starts a streaming completion. A non-nil error means the stream
// never opened; otherwise the returned channel yields content deltas and is
// closed after exactly one terminal event.
func (c *Client) Stream(ctx context.Context, key string, req Request) (<-chan Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	stream, err := c.api(key).CreateChatCompletionStream(ctx, c.buildRequest(req, true))
	if err != nil {
		cancel()
		return nil, classify(err)
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer cancel()
		defer func() { _ = stream.Close() }()

		var content strings.Builder
		var usage *Usage
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				if usage == nil {
					est := c.estimateUsage(req, content.String())
					usage = &est
				}
				events <- Event{Usage: usage}
				return
			}
			if err != nil {
				events <- Event{Err: classify(err)}
				return
			}
			if chunk.Usage != nil {
				usage = &Usage{
					InputTokens:  chunk.Usage.PromptTokens,
					OutputTokens: chunk.Usage.CompletionTokens,
					TotalTokens:  chunk.Usage.TotalTokens,
				}
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				delta := chunk.Choices[0].Delta.Content
				content.WriteString(delta)
				events <- Event{Content: delta}
			}
		}
	}()
	return events, nil
}

func (c *Client) estimateUsage(req Request, completion string) Usage {
	in := 0
	for _, m := range req.Messages {
		in += utils.EstimateTokens(m.Content)
	}
	out := utils.EstimateTokens(completion)
	log.Debug().Int("input", in).Int("output", out).Msg("upstream returned no usage, using token estimates")
	return Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out, Estimated: true}
}

// classify normalizes SDK and transport errors.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = "upstream request failed"
		}
		return &UpstreamError{StatusCode: apiErr.HTTPStatusCode, Message: msg}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &UpstreamError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return fmt.Errorf("relay: %w", err)
}
