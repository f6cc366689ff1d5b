// Package critique turns retrieved document passages into a reviewed
// critique: it builds a mode-specific prompt, streams the completion,
// and parses the buffered result into findings and rewrite
// suggestions.
package critique

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Epistemic-Technology/critique-mcp/internal/index"
	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
	"github.com/Epistemic-Technology/critique-mcp/models"
)

// TokenSource is a live completion stream: tokens in arrival order on
// a channel, the accumulated text and terminal error once the channel
// closes, and Close to abandon the transfer early.
type TokenSource interface {
	Tokens() <-chan string
	Text() string
	Err() error
	Close() error
}

// Completer produces a streaming completion for a system/user prompt
// pair.
type Completer interface {
	Complete(ctx context.Context, system, user string) (TokenSource, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, system, user string) (TokenSource, error)

func (f CompleterFunc) Complete(ctx context.Context, system, user string) (TokenSource, error) {
	return f(ctx, system, user)
}

// Generator drives critique generation against a completion backend.
type Generator struct {
	completer Completer
	log       logger.Logger
}

func NewGenerator(completer Completer, log logger.Logger) *Generator {
	return &Generator{completer: completer, log: log}
}

// Generate starts a critique for the given mode over already-retrieved
// context. The returned Stream is live: the caller reads tokens as
// they arrive and calls Critique for the parsed result once delivery
// ends. Custom mode requires a question; the other modes ignore it in
// the prompt beyond what retrieval already used.
func (g *Generator) Generate(ctx context.Context, mode models.ReviewMode, retrieved *index.RetrievedContext, question string) (*Stream, error) {
	if mode == models.ModeCustom && strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: custom review mode requires a question", index.ErrInvalidQuery)
	}

	prompt := BuildPrompt(mode, retrieved.Context, question)
	g.log.Info("Generating %s critique from %d passages", mode, len(retrieved.Chunks))

	source, err := g.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	return &Stream{mode: mode, source: source}, nil
}

// Stream is one in-flight critique. Tokens are consumed as they
// arrive; Critique waits for the end of delivery, then parses the full
// buffered text exactly once. Parsing never runs on a partial prefix.
type Stream struct {
	mode   models.ReviewMode
	source TokenSource

	once sync.Once
	crit *models.Critique
	err  error
}

// Tokens exposes the live token channel. It closes when delivery ends,
// whether normally or on failure; Critique reports which.
func (s *Stream) Tokens() <-chan string {
	return s.source.Tokens()
}

// Close abandons the stream and releases the underlying connection.
// No findings are produced from an abandoned stream.
func (s *Stream) Close() error {
	return s.source.Close()
}

// Critique drains any unread tokens, then parses the buffered text
// into the final critique. It returns the stream's terminal error
// instead when delivery failed. Safe to call more than once; the
// result is computed once.
func (s *Stream) Critique() (*models.Critique, error) {
	s.once.Do(func() {
		for range s.source.Tokens() {
		}
		if err := s.source.Err(); err != nil {
			s.err = err
			return
		}
		text := s.source.Text()
		s.crit = &models.Critique{
			Mode:     s.mode,
			Text:     text,
			Findings: ParseFindings(text),
			Rewrites: ParseRewrites(text),
		}
	})
	if s.err != nil {
		return nil, s.err
	}
	return s.crit, nil
}
