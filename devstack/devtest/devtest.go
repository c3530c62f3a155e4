// Package devtest provides the test handles used throughout the harness:
// T for test-scope resources, and P for package-scope resources that are
// shared between tests (most importantly the shared bridge environment).
package devtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/bridge-service/testlog"
)

// CommonT is the subset shared by T and P. It is minimal enough to be
// implemented by tooling outside of `go test`.
type CommonT interface {
	Errorf(format string, args ...interface{})
	FailNow()

	TempDir() string
	Cleanup(fn func())
	Logf(format string, args ...any)
	Helper()
	Name() string

	Logger() log.Logger
	Ctx() context.Context
	Require() *require.Assertions
}

// T is the handle for test-scope work. Cleanups registered here run at the
// end of the test, before any package-scope cleanup.
type T interface {
	CommonT

	// Run runs the given function as a sub-test.
	Run(name string, fn func(T))

	// Parallel signals that this test may run in parallel with other parallel tests.
	Parallel()

	Skip(args ...any)
	Skipf(format string, args ...any)
	Skipped() bool

	// Distinguishes this interface from P, so the two cannot be mixed up.
	_TestOnly()
}

// This testing subset is sufficient for the require.Assertions to work.
var _ require.TestingT = T(nil)

// testingT wraps a regular *testing.T into a T.
type testingT struct {
	t      *testing.T
	logger log.Logger
	ctx    context.Context
	req    *require.Assertions
}

var _ T = (*testingT)(nil)

func (t *testingT) Errorf(format string, args ...interface{}) {
	t.t.Helper()
	t.t.Errorf(format, args...)
}

func (t *testingT) FailNow() {
	t.t.Helper()
	t.t.FailNow()
}

func (t *testingT) TempDir() string {
	return t.t.TempDir()
}

func (t *testingT) Cleanup(fn func()) {
	t.t.Cleanup(fn)
}

func (t *testingT) Logf(format string, args ...any) {
	t.t.Helper()
	// route through the logger, to keep log formatting consistent
	t.logger.Info(fmt.Sprintf(format, args...))
}

func (t *testingT) Helper() {
	t.t.Helper()
}

func (t *testingT) Name() string {
	return t.t.Name()
}

func (t *testingT) Logger() log.Logger {
	return t.logger
}

func (t *testingT) Ctx() context.Context {
	return t.ctx
}

func (t *testingT) Require() *require.Assertions {
	return t.req
}

func (t *testingT) Run(name string, fn func(T)) {
	t.t.Run(name, func(subGoT *testing.T) {
		ctx, cancel := context.WithCancel(t.ctx)
		subGoT.Cleanup(cancel)
		subT := &testingT{
			t:      subGoT,
			logger: t.logger.New("subtest", name),
			ctx:    ctx,
		}
		subT.req = require.New(subT)
		fn(subT)
	})
}

func (t *testingT) Parallel() {
	t.t.Parallel()
}

func (t *testingT) Skip(args ...any) {
	t.t.Helper()
	t.t.Skip(args...)
}

func (t *testingT) Skipf(format string, args ...any) {
	t.t.Helper()
	t.t.Skipf(format, args...)
}

func (t *testingT) Skipped() bool {
	return t.t.Skipped()
}

func (t *testingT) _TestOnly() {
	panic("do not use - this method only forces the interface to be unique")
}

// SerialT wraps a Go test handle into a T.
func SerialT(t *testing.T) T {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := testlog.Logger(t, log.LevelInfo)
	out := &testingT{
		t:      t,
		logger: logger,
		ctx:    ctx,
	}
	out.req = require.New(out)
	return out
}

// ParallelT is SerialT with parallel testing enabled by default.
func ParallelT(t *testing.T) T {
	out := SerialT(t)
	out.Parallel()
	return out
}
