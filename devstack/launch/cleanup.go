package launch

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

// cleanupStack holds the cleanup callbacks of completed stages.
// Callbacks are appended only after a stage reports success, and unwound in
// strict reverse order. Each callback runs at most once: Unwind pops entries
// as it goes, and the whole stack can only be unwound once.
type cleanupStack struct {
	mu    sync.Mutex
	items []namedCleanup
	spent bool
}

type namedCleanup struct {
	stage string
	fn    stack.CleanupFunc
}

func (s *cleanupStack) Push(stageName string, fn stack.CleanupFunc) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, namedCleanup{stage: stageName, fn: fn})
}

// Unwind invokes all held cleanups in reverse order. A failing cleanup is
// logged and does not stop the remaining cleanups: teardown must be maximally
// complete even under partial failure. Returns true if every cleanup
// succeeded.
func (s *cleanupStack) Unwind(ctx context.Context, logger log.Logger) bool {
	s.mu.Lock()
	if s.spent {
		s.mu.Unlock()
		return true
	}
	s.spent = true
	items := s.items
	s.items = nil
	s.mu.Unlock()

	complete := true
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		logger.Info("Cleaning up stage", "stage", item.stage)
		if err := runCleanup(ctx, item.fn); err != nil {
			logger.Error("Stage cleanup failed, continuing teardown", "stage", item.stage, "err", err)
			complete = false
		}
	}
	return complete
}

// runCleanup guards against panicking cleanups, so a single bad callback
// cannot stop the rest of the stack from unwinding.
func runCleanup(ctx context.Context, fn stack.CleanupFunc) (err error) {
	defer func() {
		if x := recover(); x != nil {
			err = fmt.Errorf("cleanup panicked: %v", x)
		}
	}()
	return fn(ctx)
}
