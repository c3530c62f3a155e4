package sysproc

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

// runPassThrough executes an external command with the environment endpoints
// exported, capturing output to the named process log. Used for the stages
// that are pure pass-through to external tooling.
func runPassThrough(ctx context.Context, cfg *stack.Config, env *stack.Environment, name string, command []string) error {
	logFile, err := processLog(cfg, name)
	if err != nil {
		return err
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(),
		stack.EnvMarkerFor(cfg.EnvID),
		"CHAIN_A_RPC="+env.ChainA.First(),
		"CHAIN_B_RPC="+env.ChainB.First(),
	)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s command %q failed (see %s): %w", name, command[0], logFile.Name(), err)
	}
	return nil
}

// DeployStage deploys the bridge and reward contracts onto chain B by running
// the configured external deploy command. The contract contents are not this
// harness' concern; the command is a collaborator.
type DeployStage struct{}

var _ stack.Stage = (*DeployStage)(nil)

func (DeployStage) Name() string {
	return "deploy-contracts"
}

func (DeployStage) Run(ctx context.Context, cfg *stack.Config, env *stack.Environment) stack.StageResult {
	if len(cfg.DeployCommand) == 0 {
		cfg.Log.Warn("No deploy command configured, skipping contract deployment")
		return stack.StageResult{}
	}
	// Deployed contracts live and die with the chain-B node; no cleanup.
	return stack.StageResult{Err: runPassThrough(ctx, cfg, env, "deploy-contracts", cfg.DeployCommand)}
}

// RegisterStage registers the chain-A validator set with the bridge
// contracts, again as an external pass-through command.
type RegisterStage struct{}

var _ stack.Stage = (*RegisterStage)(nil)

func (RegisterStage) Name() string {
	return "register-validators"
}

func (RegisterStage) Run(ctx context.Context, cfg *stack.Config, env *stack.Environment) stack.StageResult {
	if len(cfg.RegisterCommand) == 0 {
		cfg.Log.Warn("No register command configured, skipping validator registration")
		return stack.StageResult{}
	}
	return stack.StageResult{Err: runPassThrough(ctx, cfg, env, "register-validators", cfg.RegisterCommand)}
}
