// Package shared implements the in-process shared-environment lifecycle:
// a reference-counted handle over the launch pipeline, coalescing concurrent
// launch requests into a single pipeline invocation.
package shared

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

// State is the lifecycle state of a Manager.
type State int

const (
	Idle State = iota
	Launching
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Launching:
		return "launching"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Launcher is the slice of the launch pipeline the manager depends on.
type Launcher interface {
	Launch(ctx context.Context, cfg *stack.Config) (*stack.Environment, error)
}

// ErrTornDown is returned to acquirers that lose the race against an
// explicit teardown.
var ErrTornDown = errors.New("shared environment was torn down")

// inflightLaunch is one launch attempt. All acquirers that arrive while it is
// in flight share its outcome.
type inflightLaunch struct {
	done chan struct{} // closed when env/err are set
	env  *stack.Environment
	err  error
}

// Manager is an explicit, dependency-injected shared-environment handle.
// Tests can instantiate independent managers without global leakage;
// package-level glue lives in the presets package.
type Manager struct {
	log      log.Logger
	launcher Launcher

	mu       sync.Mutex
	cfg      *stack.Config
	state    State
	inflight *inflightLaunch
	env      *stack.Environment
	refs     int
}

func NewManager(logger log.Logger, launcher Launcher, cfg *stack.Config) *Manager {
	return &Manager{
		log:      logger,
		launcher: launcher,
		cfg:      cfg,
	}
}

// Configure applies config options. Only legal while Idle: configuration
// after launch has started would be silently ignored, so it fails loudly.
func (m *Manager) Configure(opts ...stack.Option) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return fmt.Errorf("cannot configure shared environment in state %s, configure before first acquire", m.state)
	}
	for _, opt := range opts {
		opt(m.cfg)
	}
	return nil
}

// Acquire returns the shared environment, launching it if needed.
// Concurrent acquirers during a launch all share the single in-flight
// pipeline invocation: they resolve to the same environment on success,
// or all observe the same launch error. Every successful Acquire increments
// the reference count.
func (m *Manager) Acquire(ctx context.Context) (*stack.Environment, error) {
	m.mu.Lock()
	switch m.state {
	case Running:
		m.refs++
		env := m.env
		m.mu.Unlock()
		return env, nil

	case Launching:
		attempt := m.inflight
		m.mu.Unlock()
		return m.await(ctx, attempt)

	case Idle:
		attempt := &inflightLaunch{done: make(chan struct{})}
		m.state = Launching
		m.inflight = attempt
		cfg := m.cfg
		m.mu.Unlock()
		m.launch(ctx, attempt, cfg)
		return m.await(ctx, attempt)

	default:
		m.mu.Unlock()
		return nil, fmt.Errorf("shared environment manager in invalid state %s", m.state)
	}
}

// launch runs the single pipeline invocation for this attempt and publishes
// the outcome to all waiters.
func (m *Manager) launch(ctx context.Context, attempt *inflightLaunch, cfg *stack.Config) {
	m.log.Info("Launching shared environment", "env", cfg.EnvID)
	env, err := m.launcher.Launch(ctx, cfg)

	m.mu.Lock()
	if err != nil {
		m.state = Idle
		m.log.Error("Shared environment launch failed", "env", cfg.EnvID, "err", err)
	} else {
		m.state = Running
		m.env = env
	}
	m.inflight = nil
	m.mu.Unlock()

	attempt.env = env
	attempt.err = err
	close(attempt.done)
}

func (m *Manager) await(ctx context.Context, attempt *inflightLaunch) (*stack.Environment, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-attempt.done:
	}
	if attempt.err != nil {
		return nil, attempt.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Running || m.env != attempt.env {
		// Torn down between launch completion and this acquirer waking up.
		return nil, ErrTornDown
	}
	m.refs++
	return attempt.env, nil
}

// Release decrements the reference count, floored at zero.
// It never triggers teardown: teardown is explicit.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs > 0 {
		m.refs--
	}
}

// Refs returns the current reference count.
func (m *Manager) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Env returns the running environment, or nil.
func (m *Manager) Env() *stack.Environment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.env
}

// Teardown destroys the running environment regardless of outstanding
// references, and resets the manager to Idle. Typically bound to
// process-exit handling. A teardown while a launch is in flight is an error:
// the launch owns the environment until it completes.
func (m *Manager) Teardown(ctx context.Context) error {
	m.mu.Lock()
	if m.state == Launching {
		m.mu.Unlock()
		return fmt.Errorf("cannot tear down shared environment while a launch is in flight")
	}
	if m.state != Running {
		m.mu.Unlock()
		return nil
	}
	env := m.env
	refs := m.refs
	m.env = nil
	m.refs = 0
	m.state = Idle
	m.mu.Unlock()

	if refs > 0 {
		m.log.Warn("Tearing down shared environment with outstanding references", "env", env.ID, "refs", refs)
	}
	return env.Cleanup(ctx)
}
