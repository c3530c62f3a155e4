package sysproc

import (
	"context"
	"fmt"
	"time"

	"github.com/roothash-pay/bridge-devnet/bridge-service/procsup"
	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

// RelayerStage brings up the bridge relayer process, pointed at the
// endpoints the chain stages recorded.
type RelayerStage struct {
	Sup *procsup.Supervisor
}

var _ stack.Stage = (*RelayerStage)(nil)

func (s *RelayerStage) Name() string {
	return "relayer"
}

func (s *RelayerStage) Run(ctx context.Context, cfg *stack.Config, env *stack.Environment) stack.StageResult {
	const name = "relayer"

	if env.ChainA.First() == "" || env.ChainB.First() == "" {
		return stack.StageResult{Err: fmt.Errorf("relayer stage needs chain endpoints, got chain-A %q chain-B %q",
			env.ChainA.First(), env.ChainB.First())}
	}

	logFile, err := processLog(cfg, name)
	if err != nil {
		return stack.StageResult{Err: err}
	}

	proc, err := s.Sup.Spawn(ctx, name, logFile,
		[]string{stack.EnvMarkerFor(cfg.EnvID)},
		cfg.RelayerBinary,
		"--substrate-url", env.ChainA.First(),
		"--ethereum-url", env.ChainB.First(),
	)
	// The child holds its own descriptor once started.
	logFile.Close()
	if err != nil {
		return stack.StageResult{Err: err}
	}
	pids := []int{proc.Pid()}
	env.AddResource(name, stack.Resource{
		Kind: stack.ResourceProcess,
		Ref:  fmt.Sprintf("%d", proc.Pid()),
	})

	// The relayer exposes no RPC; give it a moment and verify it did not
	// exit immediately on a bad flag or unreachable endpoint.
	select {
	case <-ctx.Done():
		return failStage(ctx, s.Sup, pids, ctx.Err())
	case <-time.After(2 * time.Second):
	}
	if proc.Exited() {
		return failStage(ctx, s.Sup, pids,
			fmt.Errorf("relayer exited immediately, see %s", logFile.Name()))
	}

	cfg.Log.Info("Relayer up", "pid", proc.Pid(),
		"chain_a", env.ChainA.First(), "chain_b", env.ChainB.First())
	return stack.StageResult{Cleanup: terminateCleanup(s.Sup, pids)}
}
