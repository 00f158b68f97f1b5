package tts

import (
	"context"
	"time"
)

// DefaultRetryAttempts is the attempt count used by callers that opt in to
// retries.
const DefaultRetryAttempts = 2

// Retry calls fn until it succeeds, ctx is done, or attempts calls have been
// made, sleeping base, 2*base, 4*base... between calls. It returns the last
// error.
func Retry(ctx context.Context, attempts int, base time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := base
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
