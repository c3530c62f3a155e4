// Package launch implements the ordered, rollback-safe environment launch
// pipeline. Stages are external collaborators; the pipeline owns ordering,
// the cleanup stack, and the pre-flight uniqueness scan.
package launch

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

// ResourceNamespace is one external registry that may hold leftovers of a
// same-named environment: the process table, the container daemon, etc.
type ResourceNamespace interface {
	Name() string
	// FindByEnvironment lists live resources tagged with the environment id.
	FindByEnvironment(ctx context.Context, id stack.EnvID) ([]string, error)
}

type Pipeline struct {
	log        log.Logger
	stages     []stack.Stage
	namespaces []ResourceNamespace
}

type PipelineOpt func(p *Pipeline)

func WithStages(stages ...stack.Stage) PipelineOpt {
	return func(p *Pipeline) { p.stages = append(p.stages, stages...) }
}

func WithNamespaces(namespaces ...ResourceNamespace) PipelineOpt {
	return func(p *Pipeline) { p.namespaces = append(p.namespaces, namespaces...) }
}

func NewPipeline(logger log.Logger, opts ...PipelineOpt) *Pipeline {
	p := &Pipeline{log: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Launch brings up a full environment by running all stages strictly in
// declared order. On a stage failure the cleanups of all completed stages are
// unwound in reverse order and the stage error is returned. On success the
// returned environment carries a composed cleanup equal to unwinding the
// full stack.
//
// The pre-flight uniqueness scan is compare-then-act, not an atomic
// reservation: two launches for the same id racing within the scan window can
// both proceed. Cross-process callers that need exclusion use the reuse lock.
func (p *Pipeline) Launch(ctx context.Context, cfg *stack.Config) (*stack.Environment, error) {
	if cfg.EnvID == "" {
		return nil, fmt.Errorf("refusing to launch environment without id")
	}
	logger := p.log.New("env", cfg.EnvID)

	if err := p.checkUnique(ctx, cfg.EnvID); err != nil {
		return nil, err
	}

	env := stack.NewEnvironment(cfg.EnvID)
	cleanups := &cleanupStack{}

	for _, stg := range p.stages {
		logger.Info("Running launch stage", "stage", stg.Name())
		result := stg.Run(ctx, cfg, env)
		if result.Success() {
			// Appended immediately on success, so a later stage failure
			// rolls this stage back too.
			cleanups.Push(stg.Name(), result.Cleanup)
			continue
		}
		logger.Error("Launch stage failed, rolling back", "stage", stg.Name(), "err", result.Err)
		rolledBack := cleanups.Unwind(ctx, logger)
		return nil, &StageError{
			EnvID:      cfg.EnvID,
			Stage:      stg.Name(),
			RolledBack: rolledBack,
			Err:        result.Err,
		}
	}

	env.SetCleanup(func(ctx context.Context) error {
		if !cleanups.Unwind(ctx, logger) {
			return fmt.Errorf("environment %q teardown incomplete, some cleanups failed", cfg.EnvID)
		}
		return nil
	})
	logger.Info("Environment launched", "chain_a", env.ChainA.First(), "chain_b", env.ChainB.First())
	return env, nil
}

func (p *Pipeline) checkUnique(ctx context.Context, id stack.EnvID) error {
	for _, ns := range p.namespaces {
		found, err := ns.FindByEnvironment(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to scan %s namespace for environment %q: %w", ns.Name(), id, err)
		}
		if len(found) > 0 {
			return &ConflictError{EnvID: id, Namespace: ns.Name(), Resource: found[0]}
		}
	}
	return nil
}
