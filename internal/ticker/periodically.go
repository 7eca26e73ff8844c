// Helpers for running periodic background maintenance.
package ticker

import (
	"context"
	"log/slog"
	"time"
)

// Periodically invokes task every interval until ctx ends, then returns
// ctx.Err(). A failed invocation is logged under name and does not stop the
// loop; maintenance picks up again at the next tick.
func Periodically(ctx context.Context, interval time.Duration, name string, task func(context.Context) error) error {
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			if err := task(ctx); err != nil {
				slog.Warn("periodic task failed", "task", name, "err", err)
			}
		}
	}
}
