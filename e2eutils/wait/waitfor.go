package wait

import (
	"context"
	"fmt"
	"time"
)

// DefaultTimeout bounds ForEvent/ForValue when no explicit timeout is given.
const DefaultTimeout = 30 * time.Second

// TimeoutError reports that no value matched the predicate within the
// timeout. This is a recoverable condition: the caller may retry or skip.
type TimeoutError struct {
	// What names the kind of value waited for, e.g. "event" or "storage value".
	What    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for matching %s", e.Timeout, e.What)
}

// SetupError reports that the subscription could not be established at all,
// e.g. the named event or storage path does not exist on the target chain.
// This is a configuration error and is deliberately distinct from TimeoutError.
type SetupError struct {
	What string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("failed to establish %s subscription: %v", e.What, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// SubscriptionError reports that an established subscription failed
// mid-wait, before a matching value arrived.
type SubscriptionError struct {
	What string
	Err  error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("%s subscription failed while waiting: %v", e.What, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}

type forConfig struct {
	timeout time.Duration
	what    string
}

type ForOpt func(cfg *forConfig)

// WithTimeout overrides the default 30s timeout.
func WithTimeout(d time.Duration) ForOpt {
	return func(cfg *forConfig) { cfg.timeout = d }
}

// ForEvent waits for the first value from src for which pred holds.
// A nil pred matches the first value. Exactly one of a matched value,
// a TimeoutError, a SetupError or a SubscriptionError is produced, and the
// subscription is torn down exactly once on every path.
func ForEvent[T any](ctx context.Context, src Source[T], pred func(T) bool, opts ...ForOpt) (T, error) {
	return forMatch(ctx, src, pred, "event", opts...)
}

// ForValue is ForEvent for storage-change sources. Identical semantics,
// but timeouts are reported as storage-value timeouts.
func ForValue[T any](ctx context.Context, src Source[T], pred func(T) bool, opts ...ForOpt) (T, error) {
	return forMatch(ctx, src, pred, "storage value", opts...)
}

func forMatch[T any](ctx context.Context, src Source[T], pred func(T) bool, what string, opts ...ForOpt) (T, error) {
	var zero T
	cfg := &forConfig{timeout: DefaultTimeout, what: what}
	for _, opt := range opts {
		opt(cfg)
	}

	// Buffered, so a slow consumer does not stall the producer between
	// the match and the unsubscribe.
	sink := make(chan T, 16)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sub, err := src.Subscribe(subCtx, sink)
	if err != nil {
		return zero, &SetupError{What: cfg.what, Err: err}
	}
	defer sub.Unsubscribe()

	timer := time.NewTimer(cfg.timeout)
	defer timer.Stop()

	for {
		select {
		case v := <-sink:
			if matches(pred, v) {
				return v, nil
			}
		case err := <-sub.Err():
			if err == nil {
				// Producer ended without error and without a match.
				err = fmt.Errorf("subscription ended")
			}
			return zero, &SubscriptionError{What: cfg.what, Err: err}
		case <-timer.C:
			return zero, &TimeoutError{What: cfg.what, Timeout: cfg.timeout}
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// matches evaluates the predicate, treating a panic as "no match":
// one bad value must not abort the whole wait.
func matches[T any](pred func(T) bool, v T) (ok bool) {
	if pred == nil {
		return true
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return pred(v)
}
