package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
)

// ErrRateLimited is returned once a capped retry policy ran out of attempts.
var ErrRateLimited = errors.New("openai: rate limited")

// RetryPolicy configures the backoff applied to rate limited requests.
type RetryPolicy struct {
	// MaxAttempts caps the attempts. Zero retries until the context is done.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy backs off from 2s up to 30s between attempts and never
// gives up on its own.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = def.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = def.MaxInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	return p
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.InitialInterval
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxInterval {
			return p.MaxInterval
		}
	}
	return d
}

// IsRateLimited reports whether err is an API error with status 429.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apierr *openai.Error
	return errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests
}

func withRetry[T any](ctx context.Context, policy RetryPolicy, fn func() (T, error)) (T, error) {
	policy = policy.normalized()

	var zero T
	for attempt := 1; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !IsRateLimited(err) {
			return zero, err
		}
		if policy.MaxAttempts > 0 && attempt >= policy.MaxAttempts {
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrRateLimited, attempt, err)
		}

		timer := time.NewTimer(policy.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
