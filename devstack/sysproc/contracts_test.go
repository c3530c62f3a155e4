package sysproc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/bridge-service/testlog"
	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

func stageConfig(t *testing.T) *stack.Config {
	cfg := stack.DefaultConfig(testlog.Logger(t, log.LevelInfo), t.TempDir())
	cfg.EnvID = "stage-test"
	return cfg
}

func stageEnv() *stack.Environment {
	env := stack.NewEnvironment("stage-test")
	env.ChainA = stack.ChainEndpoints{Name: "chain-a", RPC: []string{"ws://127.0.0.1:9944"}}
	env.ChainB = stack.ChainEndpoints{Name: "chain-b", RPC: []string{"http://127.0.0.1:8545"}}
	return env
}

func TestDeployStageRunsCommand(t *testing.T) {
	cfg := stageConfig(t)
	cfg.DeployCommand = []string{"sh", "-c", "echo deploying to $CHAIN_B_RPC"}

	result := DeployStage{}.Run(context.Background(), cfg, stageEnv())
	require.NoError(t, result.Err)
	require.Nil(t, result.Cleanup, "deployed contracts die with the chain, nothing to clean up")

	data, err := os.ReadFile(filepath.Join(cfg.TmpDir, "stage-test", "deploy-contracts", "out.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "deploying to http://127.0.0.1:8545",
		"the deploy command sees the chain endpoints")
}

func TestDeployStageSkipsWithoutCommand(t *testing.T) {
	result := DeployStage{}.Run(context.Background(), stageConfig(t), stageEnv())
	require.NoError(t, result.Err)
	require.Nil(t, result.Cleanup)
}

func TestDeployStageReportsCommandFailure(t *testing.T) {
	cfg := stageConfig(t)
	cfg.DeployCommand = []string{"sh", "-c", "echo no chain >&2; exit 1"}

	result := DeployStage{}.Run(context.Background(), cfg, stageEnv())
	require.Error(t, result.Err)
	require.ErrorContains(t, result.Err, "deploy-contracts")
	require.ErrorContains(t, result.Err, "out.log", "failures point at the captured output")
}

func TestRegisterStageRunsCommand(t *testing.T) {
	cfg := stageConfig(t)
	cfg.RegisterCommand = []string{"sh", "-c", "echo registering against $CHAIN_A_RPC"}

	result := RegisterStage{}.Run(context.Background(), cfg, stageEnv())
	require.NoError(t, result.Err)

	data, err := os.ReadFile(filepath.Join(cfg.TmpDir, "stage-test", "register-validators", "out.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "registering against ws://127.0.0.1:9944")
}

func TestProcessDirLayout(t *testing.T) {
	cfg := stageConfig(t)
	dir, err := processDir(cfg, "chain-a-alice")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.TmpDir, "stage-test", "chain-a-alice"), dir)
	require.DirExists(t, dir)
}
