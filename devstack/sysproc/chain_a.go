package sysproc

import (
	"context"
	"fmt"

	"github.com/roothash-pay/bridge-devnet/bridge-service/procsup"
	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

// ChainAStage brings up the substrate-side validator set: one node process
// per configured well-known validator (alice, bob, ...), each with its own
// RPC port and base path.
type ChainAStage struct {
	Sup *procsup.Supervisor
}

var _ stack.Stage = (*ChainAStage)(nil)

func (s *ChainAStage) Name() string {
	return "chain-a-validators"
}

func (s *ChainAStage) Run(ctx context.Context, cfg *stack.Config, env *stack.Environment) stack.StageResult {
	var pids []int
	var endpoints []string

	for i, validator := range cfg.ChainAValidators {
		name := "chain-a-" + validator
		port := cfg.ChainABasePort + i

		dir, err := processDir(cfg, name)
		if err != nil {
			return failStage(ctx, s.Sup, pids, err)
		}
		logFile, err := processLog(cfg, name)
		if err != nil {
			return failStage(ctx, s.Sup, pids, err)
		}

		proc, err := s.Sup.Spawn(ctx, name, logFile,
			[]string{stack.EnvMarkerFor(cfg.EnvID)},
			cfg.ChainABinary,
			"--"+validator,
			"--chain", "local",
			"--base-path", dir,
			"--rpc-port", fmt.Sprintf("%d", port),
			"--port", fmt.Sprintf("%d", port+1000),
			"--unsafe-rpc-external",
		)
		// The child holds its own descriptor once started; keeping the
		// parent's open would leak one fd per validator.
		logFile.Close()
		if err != nil {
			return failStage(ctx, s.Sup, pids, err)
		}
		pids = append(pids, proc.Pid())
		env.AddResource(name, stack.Resource{
			Kind: stack.ResourceProcess,
			Ref:  fmt.Sprintf("%d", proc.Pid()),
		})

		endpoint := fmt.Sprintf("ws://127.0.0.1:%d", port)
		if err := waitRPCReady(ctx, endpoint, "system_health"); err != nil {
			return failStage(ctx, s.Sup, pids,
				fmt.Errorf("chain-A validator %s never became ready on %s: %w", validator, endpoint, err))
		}
		endpoints = append(endpoints, endpoint)
		cfg.Log.Info("Chain-A validator up", "validator", validator, "endpoint", endpoint, "pid", proc.Pid())
	}

	env.ChainA = stack.ChainEndpoints{Name: "chain-a", RPC: endpoints}
	return stack.StageResult{Cleanup: terminateCleanup(s.Sup, pids)}
}
