package presets

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/descriptors"
	"github.com/roothash-pay/bridge-devnet/devstack/launch"
	"github.com/roothash-pay/bridge-devnet/devstack/reuse"
	"github.com/roothash-pay/bridge-devnet/devstack/shared"
	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

// reuseLauncher adapts the launch pipeline to the cross-process reuse
// protocol: leader election via the lock file, descriptor-based attach for
// everyone else, and descriptor publication after a fresh launch.
type reuseLauncher struct {
	dir      string
	log      log.Logger
	pipeline *launch.Pipeline
}

var _ shared.Launcher = (*reuseLauncher)(nil)

func (l *reuseLauncher) Launch(ctx context.Context, cfg *stack.Config) (*stack.Environment, error) {
	env, isLeader, err := reuse.Coordinate(ctx, reuse.Config{
		Dir:   l.dir,
		EnvID: cfg.EnvID,
		Log:   l.log,
	}, reuse.Ops{
		Attach: reuse.DescriptorAttach(l.dir, cfg.EnvID, l.log),
		Launch: func(ctx context.Context) (*stack.Environment, error) {
			return l.launchAndPublish(ctx, cfg)
		},
	})
	if err != nil {
		return nil, err
	}
	if isLeader {
		l.log.Info("Reusable environment stays up after this process, tear it down explicitly",
			"env", cfg.EnvID, "descriptor", descriptors.PathFor(l.dir, cfg.EnvID))
	}
	return env, nil
}

func (l *reuseLauncher) launchAndPublish(ctx context.Context, cfg *stack.Config) (*stack.Environment, error) {
	env, err := l.pipeline.Launch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	path := descriptors.PathFor(l.dir, cfg.EnvID)
	if err := descriptors.Write(path, descriptors.FromStack(env)); err != nil {
		// Without a descriptor no other process can ever attach,
		// so the fresh environment is useless. Take it down again.
		if cleanupErr := env.Cleanup(ctx); cleanupErr != nil {
			l.log.Error("Failed to clean up environment after descriptor publish failure",
				"env", cfg.EnvID, "err", cleanupErr)
		}
		return nil, fmt.Errorf("failed to publish environment descriptor: %w", err)
	}
	l.log.Info("Published environment descriptor", "env", cfg.EnvID, "path", path)
	return env, nil
}
