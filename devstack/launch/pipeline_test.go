package launch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/bridge-service/testlog"
	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

// recorder tracks stage and cleanup execution order across a pipeline run.
type recorder struct {
	order []string
}

func (r *recorder) stage(name string, err error, withCleanup bool) stack.Stage {
	return stack.StageFunc{
		StageName: name,
		Fn: func(ctx context.Context, cfg *stack.Config, env *stack.Environment) stack.StageResult {
			r.order = append(r.order, "run:"+name)
			result := stack.StageResult{Err: err}
			if withCleanup {
				result.Cleanup = func(ctx context.Context) error {
					r.order = append(r.order, "cleanup:"+name)
					return nil
				}
			}
			return result
		},
	}
}

func testConfig(t *testing.T) *stack.Config {
	cfg := stack.DefaultConfig(testlog.Logger(t, log.LevelInfo), t.TempDir())
	cfg.EnvID = "test-env"
	return cfg
}

func TestLaunchRunsStagesInOrder(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	rec := &recorder{}
	p := NewPipeline(logger, WithStages(
		rec.stage("one", nil, true),
		rec.stage("two", nil, false),
		rec.stage("three", nil, true),
	))

	env, err := p.Launch(context.Background(), testConfig(t))
	require.NoError(t, err)
	require.Equal(t, []string{"run:one", "run:two", "run:three"}, rec.order)

	// The composed cleanup unwinds in reverse completion order.
	require.NoError(t, env.Cleanup(context.Background()))
	require.Equal(t, []string{"run:one", "run:two", "run:three", "cleanup:three", "cleanup:one"}, rec.order)
}

func TestLaunchRollsBackOnStageFailure(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	boom := errors.New("chain refused to start")
	rec := &recorder{}
	p := NewPipeline(logger, WithStages(
		rec.stage("one", nil, true),
		rec.stage("two", boom, false),
		rec.stage("three", nil, true),
	))

	_, err := p.Launch(context.Background(), testConfig(t))
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, "two", stageErr.Stage)
	require.True(t, stageErr.RolledBack)
	require.ErrorIs(t, err, boom)

	// Stage three never ran, stage one was rolled back exactly once.
	require.Equal(t, []string{"run:one", "run:two", "cleanup:one"}, rec.order)
}

func TestLaunchRollbackSurvivesBadCleanups(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	boom := errors.New("boom")
	var order []string
	mk := func(name string, cleanup stack.CleanupFunc) stack.Stage {
		return stack.StageFunc{
			StageName: name,
			Fn: func(ctx context.Context, cfg *stack.Config, env *stack.Environment) stack.StageResult {
				return stack.StageResult{Cleanup: cleanup}
			},
		}
	}
	p := NewPipeline(logger, WithStages(
		mk("a", func(ctx context.Context) error {
			order = append(order, "a")
			return nil
		}),
		mk("b", func(ctx context.Context) error {
			panic("cleanup went sideways")
		}),
		mk("c", func(ctx context.Context) error {
			order = append(order, "c")
			return errors.New("partial")
		}),
		stack.StageFunc{StageName: "d", Fn: func(ctx context.Context, cfg *stack.Config, env *stack.Environment) stack.StageResult {
			return stack.StageResult{Err: boom}
		}},
	))

	_, err := p.Launch(context.Background(), testConfig(t))
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	require.False(t, stageErr.RolledBack, "failed cleanups mean incomplete rollback")
	// A panicking or failing cleanup does not stop the ones below it.
	require.Equal(t, []string{"c", "a"}, order)
}

func TestLaunchCleanupRunsAtMostOnce(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	count := 0
	p := NewPipeline(logger, WithStages(stack.StageFunc{
		StageName: "counted",
		Fn: func(ctx context.Context, cfg *stack.Config, env *stack.Environment) stack.StageResult {
			return stack.StageResult{Cleanup: func(ctx context.Context) error {
				count++
				return nil
			}}
		},
	}))

	env, err := p.Launch(context.Background(), testConfig(t))
	require.NoError(t, err)
	require.NoError(t, env.Cleanup(context.Background()))
	require.NoError(t, env.Cleanup(context.Background()))
	require.Equal(t, 1, count)
}

func TestLaunchRefusesEmptyEnvID(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	p := NewPipeline(logger)
	cfg := testConfig(t)
	cfg.EnvID = ""
	_, err := p.Launch(context.Background(), cfg)
	require.ErrorContains(t, err, "without id")
}

// stubNamespace pretends a namespace already holds resources of the
// environment.
type stubNamespace struct {
	name  string
	found []string
	err   error
}

func (n *stubNamespace) Name() string { return n.name }

func (n *stubNamespace) FindByEnvironment(ctx context.Context, id stack.EnvID) ([]string, error) {
	return n.found, n.err
}

func TestLaunchConflict(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	ran := false
	p := NewPipeline(logger,
		WithStages(stack.StageFunc{StageName: "never", Fn: func(ctx context.Context, cfg *stack.Config, env *stack.Environment) stack.StageResult {
			ran = true
			return stack.StageResult{}
		}}),
		WithNamespaces(&stubNamespace{name: "process", found: []string{"pid 4242 (bridgechain-node)"}}),
	)

	_, err := p.Launch(context.Background(), testConfig(t))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "process", conflict.Namespace)
	require.Contains(t, conflict.Resource, "4242")
	require.Contains(t, err.Error(), "tear down", "conflict error carries a remediation hint")
	require.False(t, ran, "no stage may run after a conflict")
}

func TestLaunchNamespaceScanError(t *testing.T) {
	logger := testlog.Logger(t, log.LevelInfo)
	boom := errors.New("daemon unavailable")
	p := NewPipeline(logger, WithNamespaces(&stubNamespace{name: "container", err: boom}))
	_, err := p.Launch(context.Background(), testConfig(t))
	require.ErrorIs(t, err, boom)
}
