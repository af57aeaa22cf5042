// Package retry implements the repeat-until-success policy used for
// sample-level operations.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behavior. The zero value retries forever with no
// backoff, which is the shipped default for supervised collection runs: a
// permanently failing sample keeps an operator-visible error stream going
// rather than aborting the batch.
type Policy struct {
	// MaxAttempts caps the number of invocations; <= 0 means unbounded.
	MaxAttempts int
	// Backoff is the fixed wait between attempts.
	Backoff time.Duration
}

// Do invokes fn until it succeeds, logging every failure under label.
// It stops early when ctx is canceled or MaxAttempts is exhausted.
func (p Policy) Do(ctx context.Context, logger *zap.Logger, label string, fn func(context.Context) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		logger.Warn("operation failed; retrying",
			zap.String("op", label),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return fmt.Errorf("%s: attempts exhausted after %d: %w", label, attempt, err)
		}
		if err := p.wait(ctx); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
	}
}

func (p Policy) wait(ctx context.Context) error {
	if p.Backoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.Backoff)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
