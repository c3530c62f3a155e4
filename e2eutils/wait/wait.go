// Package wait provides the synchronization primitives test suites use to
// observe cross-chain effects: a polling helper, and timeout-bounded
// "first matching value" races over event or storage subscriptions.
package wait

import (
	"context"
	"time"
)

// For polls fn at the given interval until it returns true, an error,
// or the context is done. fn is checked once immediately.
func For(ctx context.Context, interval time.Duration, fn func() (bool, error)) error {
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		// Perform an initial check before any waiting.
		done, err := fn()
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}
