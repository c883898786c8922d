package utils

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	logger "github.com/sirupsen/logrus"
)

// RetryPolicy re-invokes an operation a bounded number of times.
// MaxAttempts counts the first call, so 3 means one call plus two retries.
type RetryPolicy struct {
	Name        string
	MaxAttempts int
	Delay       time.Duration
	// Exponential doubles the delay after each failure instead of keeping it fixed.
	Exponential bool
	// Retryable decides whether err deserves another attempt. Nil retries everything.
	Retryable func(err error) bool
}

func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	if p.Exponential {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = p.Delay
		exp.Multiplier = 2
		exp.RandomizationFactor = 0
		exp.MaxElapsedTime = 0
		b = exp
	} else {
		b = backoff.NewConstantBackOff(p.Delay)
	}

	retries := 0
	if p.MaxAttempts > 1 {
		retries = p.MaxAttempts - 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do runs op until it succeeds, fails with a non-retryable error, attempts
// run out or ctx is done. The last error is returned unchanged.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.WithFields(map[string]interface{}{
			"retry":   p.Name,
			"attempt": attempt,
			"max":     p.MaxAttempts,
			"wait":    wait.String(),
		}).WithError(err).Warn("Attempt failed, retrying")
	}

	err := backoff.RetryNotify(operation, p.newBackOff(ctx), notify)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		logger.WithFields(map[string]interface{}{
			"retry":    p.Name,
			"attempts": attempt,
		}).WithError(err).Error("Giving up")
	}
	return err
}

// Retry is Do for operations that produce a value.
func Retry[T any](ctx context.Context, p RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
