package sysproc

import (
	"context"
	"fmt"

	"github.com/roothash-pay/bridge-devnet/bridge-service/procsup"
	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

// ChainBStage brings up the EVM-side dev chain as a single node process.
type ChainBStage struct {
	Sup *procsup.Supervisor
}

var _ stack.Stage = (*ChainBStage)(nil)

func (s *ChainBStage) Name() string {
	return "chain-b-evm"
}

func (s *ChainBStage) Run(ctx context.Context, cfg *stack.Config, env *stack.Environment) stack.StageResult {
	const name = "chain-b-node"

	logFile, err := processLog(cfg, name)
	if err != nil {
		return stack.StageResult{Err: err}
	}

	proc, err := s.Sup.Spawn(ctx, name, logFile,
		[]string{stack.EnvMarkerFor(cfg.EnvID)},
		cfg.ChainBBinary,
		"--port", fmt.Sprintf("%d", cfg.ChainBPort),
		"--block-time", "1",
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

	endpoint := fmt.Sprintf("http://127.0.0.1:%d", cfg.ChainBPort)
	if err := waitRPCReady(ctx, endpoint, "eth_chainId"); err != nil {
		return failStage(ctx, s.Sup, pids,
			fmt.Errorf("chain-B node never became ready on %s: %w", endpoint, err))
	}

	env.ChainB = stack.ChainEndpoints{Name: "chain-b", RPC: []string{endpoint}}
	cfg.Log.Info("Chain-B node up", "endpoint", endpoint, "pid", proc.Pid())
	return stack.StageResult{Cleanup: terminateCleanup(s.Sup, pids)}
}
