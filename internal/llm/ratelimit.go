package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
)

const (
	// Client-side pacing for embedding calls, in estimated tokens.
	embedTokensPerSecond = 16000
	embedBurstTokens     = 32000

	// Transient upstream failures get exactly one immediate retry.
	maxRetries     = 1
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 32 * time.Second
)

// WithRetry wraps an API call with bounded retry. Only transient
// failures (upstream outages, provider 429s) are retried; every other
// error returns immediately. The call function must already classify
// its errors.
func WithRetry[T any](ctx context.Context, log logger.Logger, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(baseRetryDelay) * math.Pow(2, float64(attempt-1)))
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			if wait := retryWait(lastErr); wait > delay {
				delay = wait
			}

			log.Info("Retry attempt %d/%d after %v delay", attempt, maxRetries, delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				log.Info("Retry succeeded on attempt %d", attempt)
			}
			return result, nil
		}

		lastErr = err
		if !isTransient(err) {
			return zero, err
		}

		log.Warn("Transient error on attempt %d/%d: %v", attempt+1, maxRetries+1, err)
	}

	return zero, fmt.Errorf("retries exhausted: %w", lastErr)
}

// isTransient reports whether an error is worth one more attempt.
func isTransient(err error) bool {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return true
	}
	var limited *RateLimitError
	return errors.As(err, &limited)
}

// retryWait extracts the provider-mandated wait from a rate limit
// error, zero otherwise.
func retryWait(err error) time.Duration {
	var limited *RateLimitError
	if errors.As(err, &limited) {
		return limited.RetryAfter
	}
	return 0
}

// Cooldown enforces a fixed minimum interval between generation
// requests. Requests arriving inside the window are rejected with a
// RateLimitError carrying the remaining wait; they are never queued,
// and a rejected request does not extend the window.
type Cooldown struct {
	limiter *rate.Limiter
}

// NewCooldown creates a cooldown with the given interval. A
// non-positive interval disables the gate.
func NewCooldown(interval time.Duration) *Cooldown {
	if interval <= 0 {
		return &Cooldown{}
	}
	return &Cooldown{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Check consumes the cooldown slot if one is available. A nil Cooldown
// never blocks.
func (c *Cooldown) Check() error {
	if c == nil || c.limiter == nil {
		return nil
	}
	r := c.limiter.Reserve()
	if !r.OK() {
		return &RateLimitError{RetryAfter: providerRetryFallback}
	}
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return &RateLimitError{RetryAfter: delay}
	}
	return nil
}

// estimateTokens approximates the token count of a text for pacing.
// Four characters per token is close enough for English prose.
func estimateTokens(texts []string) int {
	total := 0
	for _, t := range texts {
		total += len(t)/4 + 1
	}
	return total
}
