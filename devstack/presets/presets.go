// Package presets wires the shared bridge environment into `go test`
// packages: a TestMain wrapper that owns the package scope, a global
// manager handle, and acquire helpers for individual tests.
package presets

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/bridge-service/locks"
	bridgelog "github.com/roothash-pay/bridge-devnet/bridge-service/log"
	"github.com/roothash-pay/bridge-devnet/bridge-service/procsup"
	"github.com/roothash-pay/bridge-devnet/devstack/devtest"
	"github.com/roothash-pay/bridge-devnet/devstack/launch"
	"github.com/roothash-pay/bridge-devnet/devstack/shared"
	"github.com/roothash-pay/bridge-devnet/devstack/stack"
	"github.com/roothash-pay/bridge-devnet/devstack/sysproc"
)

// lockedManager is the global variable that stores the shared-environment
// manager that tests may use. Presets are expected to use the global manager,
// unless explicitly constructing their own shared.Manager.
var lockedManager locks.RWValue[*shared.Manager]

// DoMain runs M with the pre- and post-processing of tests,
// to set up the default global manager and global logger.
// This will os.Exit(code) and not return.
func DoMain(m *testing.M, opts ...stack.Option) {
	// nest the function, so we can defer-recover and defer-cleanup, before os.Exit
	code := func() (errCode int) {
		failed := new(atomic.Bool)
		defer func() {
			if failed.Load() {
				errCode = 1
			}
		}()
		defer func() {
			if x := recover(); x != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Panic during test Main: %v\n", x)
				failed.Store(true)
			}
		}()

		// This may be tuned with env or CLI flags in the future, to customize test output
		logger := bridgelog.NewLogger(os.Stdout, bridgelog.CLIConfig{
			Level:  log.LevelInfo,
			Color:  true,
			Format: bridgelog.FormatTerminal,
			Pid:    false,
		})
		p := devtest.NewP(logger, func() {
			debug.PrintStack()
			failed.Store(true)
			panic("setup fail")
		})
		defer p.Close()

		initManager(p, opts...)

		errCode = m.Run()
		return
	}()
	_, _ = fmt.Fprintf(os.Stderr, "\nExiting, code: %d\n", code)
	os.Exit(code)
}

func initManager(p devtest.P, opts ...stack.Option) {
	lockedManager.Lock()
	defer lockedManager.Unlock()
	if lockedManager.Value != nil {
		return
	}

	envCfg := shared.FromOSEnv()

	// Reuse-mode processes must agree on one directory for the lock file and
	// the environment descriptor, so the reuse dir is fixed rather than a
	// per-process temp dir.
	var tmpDir string
	if envCfg.Reuse {
		tmpDir = shared.ReuseDir()
		if err := os.MkdirAll(tmpDir, 0o755); err != nil {
			p.Logger().Crit("Failed to create harness dir", "dir", tmpDir, "err", err)
		}
	} else {
		tmpDir = p.TempDir()
	}

	cfg := stack.DefaultConfig(p.Logger(), tmpDir)
	cfg.EnvID = envCfg.EnvID
	for _, opt := range opts {
		opt(cfg)
	}

	sup := procsup.New(p.Logger())
	pipeline := launch.NewPipeline(p.Logger(),
		launch.WithStages(sysproc.DefaultStages(sup)...),
		launch.WithNamespaces(sysproc.Namespaces(p.Logger())...),
	)

	var launcher shared.Launcher = pipeline
	if envCfg.Reuse {
		p.Logger().Info("Cross-process environment reuse enabled", "env", envCfg.EnvID, "dir", tmpDir)
		launcher = &reuseLauncher{dir: tmpDir, log: p.Logger(), pipeline: pipeline}
	}
	lockedManager.Value = shared.NewManager(p.Logger(), launcher, cfg)

	if !envCfg.Reuse {
		// One-shot environments die with the package scope. Reusable ones
		// stay up for the next process; `bridge-batch teardown` removes them.
		mgr := lockedManager.Value
		p.Cleanup(func() {
			if err := mgr.Teardown(context.Background()); err != nil {
				p.Logger().Error("Failed to tear down shared environment", "err", err)
			}
		})
	}
}

// Manager returns the globally configured shared-environment manager.
//
// Add a TestMain to your test package to init the manager:
//
//	func TestMain(m *testing.M) {
//	    presets.DoMain(m)
//	}
func Manager() *shared.Manager {
	out := lockedManager.Get()
	if out == nil {
		panic(`
Add a TestMain to your test package to init the manager:

	func TestMain(m *testing.M) {
		presets.DoMain(m)
	}
`)
	}
	return out
}

// AcquireShared returns the shared bridge environment, launching it on first
// use. The matching release is registered as a test cleanup.
func AcquireShared(t devtest.T) *stack.Environment {
	t.Helper()
	mgr := Manager()
	env, err := mgr.Acquire(t.Ctx())
	t.Require().NoError(err, "failed to acquire shared bridge environment")
	t.Cleanup(mgr.Release)
	return env
}
