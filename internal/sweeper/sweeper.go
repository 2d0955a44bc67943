// Package sweeper deactivates services past their expiry. The sweep is a
// single idempotent bulk update, safe to run from the in-process ticker and
// from the standalone cmd/sweeper binary at the same time — whichever runs
// second simply affects zero rows.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/clustershield/clustershield/internal/repository"
)

// Sweep runs one expiration pass at the given instant and returns the
// number of services deactivated.
func Sweep(ctx context.Context, services *repository.ServiceRepo, now time.Time) (int64, error) {
	return services.DeactivateExpired(ctx, now)
}

// Run executes Sweep on a fixed interval until ctx is cancelled. A failed
// pass is logged and retried wholesale on the next tick; there is no
// partial-batch state to clean up.
func Run(ctx context.Context, services *repository.ServiceRepo, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := Sweep(sweepCtx, services, time.Now().UTC())
			cancel()
			if err != nil {
				log.Printf("sweeper: sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("sweeper: deactivated %d expired services", n)
			}
		}
	}
}
