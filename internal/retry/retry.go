package retry

import (
	"context"
	"time"
)

// Do calls fn until it succeeds, the strategy gives up, or on declines the error.
func Do(ctx context.Context, strategy Strategy, on *On, fn func(ctx context.Context) error) error {
	if strategy == nil {
		strategy = Never{}
	}

	for retryCount := uint(0); ; retryCount++ {
		sleep, exceeded := strategy.Sleep(retryCount)

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if exceeded || on == nil || !on.CheckError(err) {
			return err
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
