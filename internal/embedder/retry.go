package embedder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// backoffDelay returns the wait before retrying after attempt n (0-based):
// InitialBackoffMs doubled per attempt, capped at MaxBackoffMs.
func backoffDelay(attempt int) time.Duration {
	ms := float64(InitialBackoffMs)
	for i := 0; i < attempt; i++ {
		ms *= BackoffMultiplier
		if ms >= float64(MaxBackoffMs) {
			return time.Duration(MaxBackoffMs) * time.Millisecond
		}
	}
	return time.Duration(ms) * time.Millisecond
}

// retryWithBackoff calls fn up to MaxRetries times, sleeping between
// attempts. Cancelling ctx ends the loop without a further attempt.
func retryWithBackoff[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if attempt >= MaxRetries-1 {
			return zero, fmt.Errorf("attempt %d: %w", attempt+1, err)
		}
		log.Debug().Err(err).Int("attempt", attempt+1).
			Dur("backoff", backoffDelay(attempt)).Msg("provider call failed, retrying")

		timer := time.NewTimer(backoffDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
