package wait

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// Source is a subscribable stream of discrete values (chain events,
// storage-change notifications). Subscribe delivers values into sink until
// the returned subscription is unsubscribed. A Subscribe error means the
// source itself is invalid (e.g. the named event or storage path does not
// exist), not that no value matched.
type Source[T any] interface {
	Subscribe(ctx context.Context, sink chan<- T) (ethereum.Subscription, error)
}

// PollSource adapts a poll function into a Source, for chains that expose
// storage values but no native change subscription.
type PollSource[T any] struct {
	// Fetch reads the current value. The first call validates the source:
	// if it fails, Subscribe fails and no subscription is established.
	Fetch func(ctx context.Context) (T, error)
	// Interval between polls. Defaults to 500ms.
	Interval time.Duration
}

var _ Source[uint64] = (*PollSource[uint64])(nil)

func (s *PollSource[T]) Subscribe(ctx context.Context, sink chan<- T) (ethereum.Subscription, error) {
	first, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	interval := s.Interval
	if interval == 0 {
		interval = 500 * time.Millisecond
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		select {
		case sink <- first:
		case <-quit:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-quit:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case <-tick.C:
				v, err := s.Fetch(ctx)
				if err != nil {
					return err
				}
				select {
				case sink <- v:
				case <-quit:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}), nil
}

// LogSubscriber is the slice of the EVM client needed for log sources.
// Satisfied by *ethclient.Client.
type LogSubscriber interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// LogSource streams EVM contract logs matching a filter query.
type LogSource struct {
	Client LogSubscriber
	Query  ethereum.FilterQuery
}

var _ Source[types.Log] = (*LogSource)(nil)

func (s *LogSource) Subscribe(ctx context.Context, sink chan<- types.Log) (ethereum.Subscription, error) {
	return s.Client.SubscribeFilterLogs(ctx, s.Query, sink)
}
