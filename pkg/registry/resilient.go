package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
)

// ResilientOracle retries transient lookup failures with exponential backoff
// and bounds every lookup, retries included, by a timeout.
type ResilientOracle struct {
	inner   Oracle
	retry   retry.Config
	timeout time.Duration
}

// NewResilientOracle wraps inner. attempts below 1 are treated as 1 and a zero
// lookupTimeout disables the bound.
func NewResilientOracle(inner Oracle, attempts int, initialDelay, lookupTimeout time.Duration) *ResilientOracle {
	if attempts < 1 {
		attempts = 1
	}
	return &ResilientOracle{
		inner: inner,
		retry: retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  initialDelay,
			BackoffPolicy: retry.BackoffExponential,
		},
		timeout: lookupTimeout,
	}
}

// lookup carries a final, non-retryable outcome through the retryer.
type lookup struct {
	count int
	err   error
}

func (o *ResilientOracle) DependencyCount(ctx context.Context, name, declared string) (int, error) {
	var (
		mu   sync.Mutex
		last error
	)
	attempt := func(ctx context.Context) (lookup, error) {
		r := retry.New[lookup](o.retry)
		return r.Do(ctx, func(ctx context.Context) (lookup, error) {
			n, err := o.inner.DependencyCount(ctx, name, declared)
			if errors.Is(err, ErrPackageNotFound) {
				return lookup{err: err}, nil
			}
			if err != nil {
				mu.Lock()
				last = err
				mu.Unlock()
				return lookup{}, err
			}
			return lookup{count: n}, nil
		})
	}

	var (
		res lookup
		err error
	)
	if o.timeout > 0 {
		t := timeout.New[lookup](timeout.Config{DefaultTimeout: o.timeout})
		res, err = t.Execute(ctx, o.timeout, attempt)
	} else {
		res, err = attempt(ctx)
	}

	if err == nil {
		return res.count, res.err
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return 0, ctx.Err()
	}
	if errors.Is(err, ErrOracleUnavailable) || errors.Is(err, ErrOracleTimeout) {
		return 0, err
	}
	mu.Lock()
	cause := last
	mu.Unlock()
	if cause != nil && (errors.Is(cause, ErrOracleUnavailable) || errors.Is(cause, ErrOracleTimeout)) {
		return 0, cause
	}
	if cause == nil || errors.Is(cause, context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return 0, fmt.Errorf("%w: %s after %s: %v", ErrOracleTimeout, name, o.timeout, err)
	}
	return 0, fmt.Errorf("%w: %s: %v", ErrOracleUnavailable, name, cause)
}
