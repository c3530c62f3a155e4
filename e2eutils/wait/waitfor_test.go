package wait

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/event"
)

// scriptedSource emits a fixed sequence of values, then either fails the
// subscription or idles until unsubscribed. Unsubscribe calls are counted.
type scriptedSource struct {
	setupErr error
	values   []int
	endErr   error

	unsubs atomic.Int32
}

func (s *scriptedSource) Subscribe(ctx context.Context, sink chan<- int) (ethereum.Subscription, error) {
	if s.setupErr != nil {
		return nil, s.setupErr
	}
	inner := event.NewSubscription(func(quit <-chan struct{}) error {
		for _, v := range s.values {
			select {
			case sink <- v:
			case <-quit:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if s.endErr != nil {
			return s.endErr
		}
		<-quit
		return nil
	})
	return &countingSub{Subscription: inner, unsubs: &s.unsubs}, nil
}

type countingSub struct {
	ethereum.Subscription
	unsubs *atomic.Int32
}

func (s *countingSub) Unsubscribe() {
	s.unsubs.Add(1)
	s.Subscription.Unsubscribe()
}

func TestForEventMatch(t *testing.T) {
	src := &scriptedSource{values: []int{1, 2, 3, 4}}
	v, err := ForEvent[int](context.Background(), src, func(v int) bool { return v == 3 },
		WithTimeout(10*time.Second))
	require.NoError(t, err)
	require.Equal(t, 3, v)
	require.Equal(t, int32(1), src.unsubs.Load(), "subscription must be torn down exactly once")
}

func TestForEventNilPredicate(t *testing.T) {
	src := &scriptedSource{values: []int{7, 8}}
	v, err := ForEvent[int](context.Background(), src, nil, WithTimeout(10*time.Second))
	require.NoError(t, err)
	require.Equal(t, 7, v, "nil predicate matches the first value")
}

func TestForEventTimeout(t *testing.T) {
	src := &scriptedSource{values: []int{1, 2}}
	_, err := ForEvent[int](context.Background(), src, func(v int) bool { return v > 100 },
		WithTimeout(100*time.Millisecond))
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, 100*time.Millisecond, timeoutErr.Timeout)
	require.Equal(t, int32(1), src.unsubs.Load(), "subscription must be torn down exactly once")
}

func TestForEventSetupError(t *testing.T) {
	boom := errors.New("no such event on chain")
	src := &scriptedSource{setupErr: boom}
	start := time.Now()
	_, err := ForEvent[int](context.Background(), src, nil, WithTimeout(10*time.Second))
	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	require.ErrorIs(t, err, boom)
	var timeoutErr *TimeoutError
	require.False(t, errors.As(err, &timeoutErr), "setup failure must not look like a timeout")
	require.Less(t, time.Since(start), 5*time.Second, "setup failure must not wait for the timeout")
	require.Equal(t, int32(0), src.unsubs.Load(), "nothing to unsubscribe when setup failed")
}

func TestForEventPredicatePanic(t *testing.T) {
	src := &scriptedSource{values: []int{0, 5}}
	v, err := ForEvent[int](context.Background(), src, func(v int) bool {
		if v == 0 {
			panic("divide by zero, probably")
		}
		return true
	}, WithTimeout(10*time.Second))
	require.NoError(t, err, "a panicking predicate is a no-match, not an abort")
	require.Equal(t, 5, v)
}

func TestForEventSubscriptionFailure(t *testing.T) {
	boom := errors.New("connection reset")
	src := &scriptedSource{values: []int{1}, endErr: boom}
	_, err := ForEvent[int](context.Background(), src, func(v int) bool { return v > 100 },
		WithTimeout(10*time.Second))
	var subErr *SubscriptionError
	require.ErrorAs(t, err, &subErr)
	require.ErrorIs(t, err, boom)
}

func TestForEventCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &scriptedSource{}
	_, err := ForEvent[int](ctx, src, nil, WithTimeout(10*time.Second))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, int32(1), src.unsubs.Load(), "subscription must be torn down exactly once")
}

func TestForValuePoll(t *testing.T) {
	var calls atomic.Int32
	src := &PollSource[int]{
		Fetch: func(ctx context.Context) (int, error) {
			return int(calls.Add(1)), nil
		},
		Interval: 5 * time.Millisecond,
	}
	v, err := ForValue[int](context.Background(), src, func(v int) bool { return v >= 3 },
		WithTimeout(10*time.Second))
	require.NoError(t, err)
	require.GreaterOrEqual(t, v, 3)
}

func TestForValuePollSetupError(t *testing.T) {
	boom := errors.New("no such storage path")
	src := &PollSource[int]{
		Fetch: func(ctx context.Context) (int, error) { return 0, boom },
	}
	_, err := ForValue[int](context.Background(), src, nil, WithTimeout(10*time.Second))
	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	require.ErrorIs(t, err, boom)
}
