package reuse

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/roothash-pay/bridge-devnet/descriptors"
	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

const probeTimeout = 5 * time.Second

// DescriptorAttach builds an Attach operation backed by the published
// environment descriptor: read the descriptor file, then probe one endpoint
// per chain to make sure the environment is actually alive and not just a
// stale file.
func DescriptorAttach(dir string, id stack.EnvID, logger log.Logger) func(ctx context.Context) (*stack.Environment, error) {
	path := descriptors.PathFor(dir, id)
	return func(ctx context.Context) (*stack.Environment, error) {
		desc, err := descriptors.Read(path)
		if os.IsNotExist(err) {
			return nil, ErrNotRunning
		}
		if err != nil {
			return nil, err
		}
		env := desc.ToStack()

		if err := probeRPC(ctx, env.ChainA.First(), "system_health"); err != nil {
			logger.Debug("Chain-A endpoint probe failed", "env", id, "err", err)
			return nil, fmt.Errorf("%w: chain-A endpoint unreachable: %v", ErrNotRunning, err)
		}
		if err := probeRPC(ctx, env.ChainB.First(), "eth_chainId"); err != nil {
			logger.Debug("Chain-B endpoint probe failed", "env", id, "err", err)
			return nil, fmt.Errorf("%w: chain-B endpoint unreachable: %v", ErrNotRunning, err)
		}
		logger.Info("Attached to shared environment", "env", id,
			"chain_a", env.ChainA.First(), "chain_b", env.ChainB.First())
		return env, nil
	}
}

func probeRPC(ctx context.Context, endpoint, method string) error {
	if endpoint == "" {
		return fmt.Errorf("descriptor has no endpoint")
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return err
	}
	defer client.Close()
	var result any
	return client.CallContext(ctx, &result, method)
}
