package devtest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/log"
)

// P hosts package-wide resources: things that outlive a single test-scope,
// like the shared bridge environment. It is typically created in TestMain.
type P interface {
	CommonT

	// Close cancels the package context and runs all registered cleanup,
	// in reverse registration order.
	Close()

	// Distinguishes this interface from T, so the two cannot be mixed up.
	_PackageOnly()
}

// implP is the canonical P implementation, usable from TestMain and tooling.
type implP struct {
	scopeName string

	logger log.Logger

	// fail registers a critical failure. The implementer chooses how:
	// panic, crit-log, exit, etc.
	fail func()

	ctx    context.Context
	cancel context.CancelFunc

	cleanupLock    sync.Mutex
	cleanupBacklog []func()

	req *require.Assertions
}

var _ P = (*implP)(nil)

func NewP(logger log.Logger, onFail func()) P {
	ctx, cancel := context.WithCancel(context.Background())
	out := &implP{
		scopeName: "pkg",
		logger:    logger,
		fail:      onFail,
		ctx:       ctx,
		cancel:    cancel,
	}
	out.req = require.New(out)
	return out
}

func (p *implP) Errorf(format string, args ...interface{}) {
	p.logger.Error(fmt.Sprintf(format, args...))
}

func (p *implP) FailNow() {
	p.fail()
}

func (p *implP) TempDir() string {
	tempDir, err := os.MkdirTemp("", "bridge-dev-*")
	if err != nil {
		p.Errorf("failed to create temp dir: %v", err)
		p.FailNow()
	}
	require.NotEmpty(p, tempDir, "sanity check temp-dir path is not empty")
	require.NotEqual(p, "/", tempDir, "sanity-check temp-dir is not root")
	p.Cleanup(func() {
		if err := os.RemoveAll(tempDir); err != nil {
			p.logger.Error("Failed to clean up temp dir", "dir", tempDir, "err", err)
		}
	})
	return tempDir
}

func (p *implP) Cleanup(fn func()) {
	p.cleanupLock.Lock()
	defer p.cleanupLock.Unlock()
	p.cleanupBacklog = append(p.cleanupBacklog, fn)
}

func (p *implP) Logf(format string, args ...any) {
	p.logger.Info(fmt.Sprintf(format, args...))
}

func (p *implP) Helper() {
	// no-op
}

func (p *implP) Name() string {
	return p.scopeName
}

func (p *implP) Logger() log.Logger {
	return p.logger
}

func (p *implP) Ctx() context.Context {
	return p.ctx
}

func (p *implP) Require() *require.Assertions {
	return p.req
}

// Close cancels the package context, then unwinds the cleanup backlog
// in reverse order. If a cleanup panics, the remaining backlog is still
// attempted; the panic itself is not recovered.
func (p *implP) Close() {
	p.cancel()

	defer func() {
		p.cleanupLock.Lock()
		recur := len(p.cleanupBacklog) > 0
		p.cleanupLock.Unlock()
		if recur {
			p.logger.Error("Last cleanup panicked, continuing cleanup attempt now")
			p.Close()
		}
	}()

	for {
		// Pop one item and run it unlocked, since cleanups may register
		// further cleanups.
		var cleanup func()
		p.cleanupLock.Lock()
		if n := len(p.cleanupBacklog); n > 0 {
			cleanup = p.cleanupBacklog[n-1]
			p.cleanupBacklog = p.cleanupBacklog[:n-1]
		}
		p.cleanupLock.Unlock()
		if cleanup == nil {
			return
		}
		cleanup()
	}
}

func (p *implP) _PackageOnly() {
	panic("do not use - this method only forces the interface to be unique")
}
