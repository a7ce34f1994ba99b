package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
)

const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 4 * time.Second
	DefaultMaxBackoff     = 10 * time.Second
	defaultMultiplier     = 2
)

// RetryPolicy bounds attempts of a single completion with exponential
// backoff between them.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    DefaultMaxAttempts,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		Multiplier:     defaultMultiplier,
	}
}

// Backoff returns the wait before the attempt following attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.InitialBackoff <= 0 || attempt < 1 {
		return 0
	}

	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	d := float64(p.InitialBackoff)
	for range attempt - 1 {
		d *= multiplier
		if p.MaxBackoff > 0 && d >= float64(p.MaxBackoff) {
			return p.MaxBackoff
		}
	}

	backoff := time.Duration(d)
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		return p.MaxBackoff
	}

	return backoff
}

type retryingClient struct {
	next   Client
	policy RetryPolicy
	name   string
	sleep  func(ctx context.Context, d time.Duration) error
	log    *slog.Logger
}

// WithRetry wraps next so that each Complete call is retried according to
// policy. The returned error is terminal.
func WithRetry(next Client, policy RetryPolicy, name string, log *slog.Logger) Client {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	return &retryingClient{
		next:   next,
		policy: policy,
		name:   name,
		sleep:  sleepContext,
		log:    log,
	}
}

func (c *retryingClient) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		result, err := c.next.Complete(ctx, prompt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) || ctx.Err() != nil {
			return "", err
		}

		if attempt == c.policy.MaxAttempts {
			break
		}

		backoff := c.policy.Backoff(attempt)
		c.log.WarnContext(ctx, "Completion failed, retrying",
			"error", err,
			"provider", c.name,
			"attempt", attempt,
			"maxAttempts", c.policy.MaxAttempts,
			"backoff", backoff)

		if err = c.sleep(ctx, backoff); err != nil {
			return "", fmt.Errorf("wait for retry: %w (last error: %w)", err, lastErr)
		}
	}

	return "", fmt.Errorf("give up after %d attempts: %w", c.policy.MaxAttempts, lastErr)
}

// retryable reports whether another attempt may succeed. Cancellation of the
// caller's context is checked separately.
func retryable(err error) bool {
	if errors.Is(err, ErrProviderNotSupported) {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
			http.StatusNotFound, http.StatusUnprocessableEntity:
			return false
		}
	}

	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
