package adapters

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures exponential backoff retry behavior.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultConnectRetry bounds a freshly spawned adapter's startup time: six
// attempts growing from 50ms to 800ms land comfortably within the 2-3s
// window a debug adapter typically needs to open its listening socket.
var DefaultConnectRetry = RetryConfig{
	MaxAttempts:  6,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     800 * time.Millisecond,
	Multiplier:   2.0,
}

// RetryWithBackoff runs operation until it succeeds, ctx is cancelled, or
// MaxAttempts is exhausted.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, operation func() error) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := operation(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("operation failed after %d attempts, last error: %w", cfg.MaxAttempts, lastErr)
}
