package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Policy bounds how an operation is retried. It carries no knowledge of the
// calls it wraps; callers supply the retryable-error predicate.
type Policy struct {
	MaxAttempts   int              // Total attempts, including the first
	InitialDelay  time.Duration    // Delay before the second attempt
	MaxDelay      time.Duration    // Cap on the backoff delay
	BackoffFactor float64          // Exponential backoff factor (e.g., 2.0)
	Retryable     func(error) bool // Nil means every error is retryable
}

// DefaultPolicy returns the retry policy used when a caller supplies none.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Runner executes operations under a Policy with exponential backoff.
type Runner struct {
	policy Policy
	logger zerolog.Logger
}

// New creates a retry runner. Zero-valued policy fields fall back to
// DefaultPolicy values.
func New(policy Policy, logger zerolog.Logger) *Runner {
	def := DefaultPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = def.InitialDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = def.MaxDelay
	}
	if policy.BackoffFactor < 1 {
		policy.BackoffFactor = def.BackoffFactor
	}
	return &Runner{
		policy: policy,
		logger: logger.With().Str("component", "retry").Logger(),
	}
}

// Do executes fn until it succeeds, the policy is exhausted, a non-retryable
// error occurs, or the context is cancelled.
func (r *Runner) Do(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	delay := r.policy.InitialDelay

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			if attempt > 1 {
				r.logger.Info().
					Str("operation", operation).
					Int("attempts", attempt).
					Msg("operation succeeded after retries")
			}
			return nil
		}

		lastErr = err

		if r.policy.Retryable != nil && !r.policy.Retryable(err) {
			r.logger.Error().
				Err(err).
				Str("operation", operation).
				Msg("non-retryable error encountered")
			return err
		}

		if attempt >= r.policy.MaxAttempts {
			break
		}

		r.logger.Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt).
			Int("max_attempts", r.policy.MaxAttempts).
			Dur("retry_in", delay).
			Msg("operation failed, retrying")

		select {
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * r.policy.BackoffFactor)
			if delay > r.policy.MaxDelay {
				delay = r.policy.MaxDelay
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.logger.Error().
		Err(lastErr).
		Str("operation", operation).
		Int("attempts", r.policy.MaxAttempts).
		Msg("operation failed after all retries")

	return fmt.Errorf("operation %s failed after %d attempts: %w",
		operation, r.policy.MaxAttempts, lastErr)
}

// Backoff returns the delay that precedes the given retry attempt
// (attempt 0 is the first retry).
func (r *Runner) Backoff(attempt int) time.Duration {
	delay := float64(r.policy.InitialDelay) * math.Pow(r.policy.BackoffFactor, float64(attempt))
	if delay > float64(r.policy.MaxDelay) {
		return r.policy.MaxDelay
	}
	return time.Duration(delay)
}
