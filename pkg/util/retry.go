package util

import (
	"context"
	"math/rand"
	"time"
)

// Retry runs fn up to attempts times with exponential backoff plus
// random jitter between attempts. Each attempt gets its own timeout
// derived from the parent context. Returns the number of retries
// performed (0 when the first attempt succeeded) and the last error if
// all attempts failed.
func Retry(ctx context.Context, attempts int, baseDelay, attemptTimeout time.Duration, fn func(ctx context.Context) error) (int, error) {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			delay := baseDelay << (i - 1)
			delay += time.Duration(rand.Int63n(int64(baseDelay) + 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return i, ctx.Err()
			}
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if attemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, attemptTimeout)
		}
		err = fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return i, nil
		}
		if ctx.Err() != nil {
			return i, err
		}
	}
	return attempts - 1, err
}
