package llm

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"
)

// chunkSource is the slice of the SDK stream the token pump needs.
type chunkSource interface {
	Next() bool
	Current() openai.ChatCompletionChunk
	Err() error
	Close() error
}

// TokenStream is a cancellable, ordered producer of completion tokens:
// one logical request, one active transfer. Tokens arrive on Tokens()
// in delivery order; the channel closes when the stream ends. After it
// closes, Text returns the full buffered completion and Err reports
// how the stream finished. A stream that ends with no content reports
// ErrEmptyCompletion.
type TokenStream struct {
	tokens chan string
	cancel context.CancelFunc

	mu   sync.Mutex
	text strings.Builder
	err  error
}

// Tokens returns the ordered token channel. The caller must drain it
// (or Close the stream) to release the underlying connection.
func (s *TokenStream) Tokens() <-chan string {
	return s.tokens
}

// Text returns the completion buffered so far. It is the full
// completion once the token channel has closed.
func (s *TokenStream) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Err reports how the stream finished. Valid after the token channel
// closes; nil means the completion ended normally with content.
func (s *TokenStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close abandons the stream: the reader stops, the connection is
// released, and no further tokens are delivered. Safe to call more
// than once and after normal completion. The returned error is always
// nil.
func (s *TokenStream) Close() error {
	s.cancel()
	return nil
}

func (s *TokenStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *TokenStream) append(delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text.WriteString(delta)
}

// Complete issues one streaming chat completion. The request is
// retried once, immediately, when the upstream is unavailable before
// any token arrives; rate limiting and credential failures surface
// unchanged. The returned TokenStream must be drained or closed.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (*TokenStream, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.completionModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature:         openai.Float(c.temperature),
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.log.Warn("Completion unavailable, retrying once: %v", lastErr)
		}

		stream := c.api.Chat.Completions.NewStreaming(ctx, params)
		ts, err := c.startStream(ctx, stream)
		if err == nil {
			return ts, nil
		}

		lastErr = err
		var upstream *UpstreamError
		if !errors.As(err, &upstream) {
			return nil, err
		}
	}
	return nil, lastErr
}

// startStream pulls the first event so that connection-time failures
// are returned synchronously, then hands the rest of the transfer to
// the pump goroutine.
func (c *Client) startStream(ctx context.Context, stream chunkSource) (*TokenStream, error) {
	if !stream.Next() {
		defer stream.Close()
		if err := stream.Err(); err != nil {
			return nil, classify(err, "completion")
		}
		return nil, ErrEmptyCompletion
	}

	ctx, cancel := context.WithCancel(ctx)
	ts := &TokenStream{
		tokens: make(chan string, 64),
		cancel: cancel,
	}
	go ts.pump(ctx, stream, stream.Current())
	return ts, nil
}

// pump forwards chunk deltas to the token channel until the stream
// ends or the context is cancelled.
func (s *TokenStream) pump(ctx context.Context, stream chunkSource, first openai.ChatCompletionChunk) {
	defer close(s.tokens)
	defer stream.Close()

	if !s.emit(ctx, first) {
		return
	}
	for stream.Next() {
		if !s.emit(ctx, stream.Current()) {
			return
		}
	}

	if err := stream.Err(); err != nil {
		s.setErr(classify(err, "completion"))
		return
	}
	if s.Text() == "" {
		s.setErr(ErrEmptyCompletion)
	}
}

func (s *TokenStream) emit(ctx context.Context, chunk openai.ChatCompletionChunk) bool {
	if len(chunk.Choices) == 0 {
		return true
	}
	delta := chunk.Choices[0].Delta.Content
	if delta == "" {
		return true
	}

	s.append(delta)
	select {
	case s.tokens <- delta:
		return true
	case <-ctx.Done():
		s.setErr(ctx.Err())
		return false
	}
}
