// Package sysproc provides the concrete launch stages that bring up a bridge
// environment from local binaries: the substrate-side validator set, the
// EVM-side dev chain, bridge contract deployment, validator registration and
// the relayer. Each stage is thin glue around an external collaborator;
// ordering, rollback and ownership are the pipeline's job.
package sysproc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/bridge-service/dockerutil"
	"github.com/roothash-pay/bridge-devnet/bridge-service/procsup"
	"github.com/roothash-pay/bridge-devnet/devstack/launch"
	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

// DefaultStages returns the canonical bring-up order. Later stages consume
// endpoints recorded by earlier ones, so the order is load-bearing.
func DefaultStages(sup *procsup.Supervisor) []stack.Stage {
	return []stack.Stage{
		&ChainAStage{Sup: sup},
		&ChainBStage{Sup: sup},
		&DeployStage{},
		&RegisterStage{},
		&RelayerStage{Sup: sup},
	}
}

// Namespaces returns the resource namespaces scanned by the pre-launch
// uniqueness check. The container namespace is skipped when no docker daemon
// is reachable.
func Namespaces(logger log.Logger) []launch.ResourceNamespace {
	out := []launch.ResourceNamespace{launch.ProcessNamespace{}}
	docker, err := dockerutil.NewClient()
	if err != nil {
		logger.Warn("Docker daemon not reachable, skipping container uniqueness scan", "err", err)
		return out
	}
	return append(out, &launch.DockerNamespace{Client: docker, Log: logger})
}

// processDir returns (and creates) the per-process working directory.
func processDir(cfg *stack.Config, name string) (string, error) {
	dir := filepath.Join(cfg.TmpDir, cfg.EnvID.String(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create process dir %s: %w", dir, err)
	}
	return dir, nil
}

// processLog opens the log file capturing one spawned process' output.
func processLog(cfg *stack.Config, name string) (*os.File, error) {
	dir, err := processDir(cfg, name)
	if err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(dir, "out.log"))
}

// failStage tears down the pids a stage spawned before failing, then reports
// the failure. The pipeline only retains cleanups of successful stages, so a
// failing stage releases its own partial work.
func failStage(ctx context.Context, sup *procsup.Supervisor, pids []int, err error) stack.StageResult {
	_ = terminateCleanup(sup, pids)(ctx)
	return stack.StageResult{Err: err}
}

// terminateCleanup builds a stage cleanup that tears down the given pids.
// Termination failures are logged by the supervisor and never propagate:
// teardown keeps going.
func terminateCleanup(sup *procsup.Supervisor, pids []int) stack.CleanupFunc {
	return func(ctx context.Context) error {
		for i := len(pids) - 1; i >= 0; i-- {
			sup.Terminate(ctx, pids[i], procsup.DefaultGracePeriod)
		}
		return nil
	}
}
