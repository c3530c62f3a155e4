package wait

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestForImmediateSuccess(t *testing.T) {
	calls := 0
	err := For(context.Background(), time.Hour, func() (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls, "the first check happens before any waiting")
}

func TestForEventualSuccess(t *testing.T) {
	calls := 0
	err := For(context.Background(), time.Millisecond, func() (bool, error) {
		calls++
		return calls >= 3, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestForPropagatesError(t *testing.T) {
	boom := errors.New("check failed")
	err := For(context.Background(), time.Millisecond, func() (bool, error) {
		return false, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestForContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := For(ctx, time.Hour, func() (bool, error) {
		return false, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}
