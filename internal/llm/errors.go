package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/openai/openai-go/v3"
)

// ErrEmptyCompletion reports a completion stream that terminated
// without producing any content. Callers surface it as its own
// condition rather than treating it as a critique with no issues.
var ErrEmptyCompletion = errors.New("completion returned no content")

// RateLimitError reports a request rejected for pacing, either by the
// local cooldown or by the provider. RetryAfter is how long the caller
// must wait before trying again.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry in %s", e.RetryAfter.Round(time.Millisecond))
}

// UpstreamError reports a network or service failure talking to the
// completion or embedding capability.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s unavailable: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// providerRetryFallback is used when a 429 response carries no
// Retry-After header.
const providerRetryFallback = 2 * time.Second

// classify maps SDK and transport errors onto the pipeline's error
// kinds. Context cancellation passes through untouched.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests:
			return &RateLimitError{RetryAfter: retryAfter(apierr.Response)}
		case apierr.StatusCode == http.StatusUnauthorized || apierr.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%s rejected API credentials: %w", op, err)
		case apierr.StatusCode >= 500:
			return &UpstreamError{Op: op, Err: err}
		default:
			return fmt.Errorf("%s request failed: %w", op, err)
		}
	}

	// Some transports wrap provider failures without a typed error.
	if isRateLimitError(err) {
		return &RateLimitError{RetryAfter: providerRetryFallback}
	}
	return &UpstreamError{Op: op, Err: err}
}

// retryAfter reads the provider's Retry-After header, in seconds.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return providerRetryFallback
	}
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return providerRetryFallback
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return providerRetryFallback
}

// isRateLimitError checks if an error reads like a 429 from the
// provider when no typed error is available.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return containsAny(errStr, []string{"429", "rate limit", "rate_limit_exceeded", "Too Many Requests"})
}

// containsAny checks if a string contains any of the given substrings
func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if contains(s, substr) {
			return true
		}
	}
	return false
}

// contains checks if a string contains a substring
func contains(s, substr string) bool {
	sLen := len(s)
	subLen := len(substr)
	if subLen > sLen {
		return false
	}
	for i := 0; i <= sLen-subLen; i++ {
		if s[i:i+subLen] == substr {
			return true
		}
	}
	return false
}
