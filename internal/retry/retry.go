package retry

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = time.Second
)

// Options controls an Executor run. Retryable narrows which failures are
// retried: empty means every failure, otherwise only errors matching one
// of the listed sentinels (errors.Is) are retried and the rest propagate
// on the first attempt.
type Options struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Retryable    []error
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	return o
}

func (o Options) retryable(err error) bool {
	if len(o.Retryable) == 0 {
		return true
	}
	for _, kind := range o.Retryable {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Do runs op until it succeeds, a non-retryable failure occurs, attempts
// run out, or ctx is done. The delay doubles after each failed attempt.
// The last failure is returned; the caller decides how fatal it is.
func Do(ctx context.Context, op func(ctx context.Context) error, opts Options) error {
	opts = opts.withDefaults()

	var err error
	delay := opts.InitialDelay
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if !opts.retryable(err) {
			return err
		}
		if attempt == opts.MaxAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}
