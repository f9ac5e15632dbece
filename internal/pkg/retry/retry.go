package retry

import (
	"context"
	"fmt"
	"time"
)

// Do runs op up to attempts times, sleeping delay between failures.
// It stops early when ctx is cancelled and returns the last error
// wrapped with the attempt count.
func Do(ctx context.Context, attempts int, delay time.Duration, op func(context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(ctx); err == nil {
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
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
