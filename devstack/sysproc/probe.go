package sysproc

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/roothash-pay/bridge-devnet/bridge-service/retry"
)

const (
	readyAttempts = 60
	readyInterval = 500 * time.Millisecond
)

// waitRPCReady blocks until the endpoint answers the given RPC method,
// retrying at a fixed interval. Used as the readiness probe after spawning
// a chain process.
func waitRPCReady(ctx context.Context, endpoint, method string) error {
	return retry.Do0(ctx, readyAttempts, retry.Fixed(readyInterval), func() error {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		client, err := rpc.DialContext(probeCtx, endpoint)
		if err != nil {
			return err
		}
		defer client.Close()
		var result any
		return client.CallContext(probeCtx, &result, method)
	})
}
