package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/psantana5/procwatch/internal/observe"
)

// RetryPolicy bounds delivery attempts
type RetryPolicy struct {
	MaxRetryCount int           // total attempts, at least 1
	RetryInterval time.Duration // pause between attempts
	SendTimeout   time.Duration // per-attempt deadline, 0 disables it
}

// DefaultRetryPolicy returns the built-in policy
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetryCount: 3,
		RetryInterval: 3 * time.Second,
		SendTimeout:   10 * time.Second,
	}
}

// Validate checks the policy bounds
func (p RetryPolicy) Validate() error {
	if p.MaxRetryCount < 1 {
		return fmt.Errorf("max_retry_count must be at least 1, got %d", p.MaxRetryCount)
	}
	if p.RetryInterval < 0 {
		return fmt.Errorf("retry_interval must not be negative")
	}
	if p.SendTimeout < 0 {
		return fmt.Errorf("send_timeout must not be negative")
	}
	return nil
}

// DeliveryError is returned once every attempt has failed
type DeliveryError struct {
	Kind     Kind
	Channel  string
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery of %s via %s failed after %d attempt(s): %v", e.Kind, e.Channel, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsDeliveryError reports whether err is an exhausted delivery
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}

// retry runs fn up to policy.MaxRetryCount times, sleeping RetryInterval
// between attempts on clock. fn receives the 1-based attempt number.
// It returns the number of attempts made and the last error.
func retry(ctx context.Context, clock observe.Clock, policy RetryPolicy, fn func(ctx context.Context, attempt int) error) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= policy.MaxRetryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if policy.SendTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, policy.SendTimeout)
		}
		err := fn(attemptCtx, attempt)
		cancel()
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}

		// No sleep after the last attempt
		if attempt == policy.MaxRetryCount {
			return attempt, lastErr
		}

		if err := clock.Sleep(ctx, policy.RetryInterval); err != nil {
			return attempt, err
		}
	}

	return policy.MaxRetryCount, lastErr
}
