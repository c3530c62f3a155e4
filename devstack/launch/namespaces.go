package launch

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/bridge-service/dockerutil"
	"github.com/roothash-pay/bridge-devnet/bridge-service/procsup"
	"github.com/roothash-pay/bridge-devnet/devstack/stack"
)

// ProcessNamespace scans the host process table for processes stamped with
// the environment id marker variable.
type ProcessNamespace struct{}

var _ ResourceNamespace = ProcessNamespace{}

func (ProcessNamespace) Name() string {
	return "process"
}

func (ProcessNamespace) FindByEnvironment(ctx context.Context, id stack.EnvID) ([]string, error) {
	pids, err := procsup.FindByEnv(ctx, stack.EnvMarkerFor(id))
	if err != nil {
		return nil, err
	}
	found := make([]string, 0, len(pids))
	for _, pid := range pids {
		found = append(found, fmt.Sprintf("pid %d (%s)", pid, procsup.Cmdline(ctx, pid)))
	}
	return found, nil
}

// DockerNamespace scans the container daemon for containers labeled with the
// environment id.
type DockerNamespace struct {
	Client *dockerutil.Client
	Log    log.Logger
}

var _ ResourceNamespace = (*DockerNamespace)(nil)

func (n *DockerNamespace) Name() string {
	return "container"
}

func (n *DockerNamespace) FindByEnvironment(ctx context.Context, id stack.EnvID) ([]string, error) {
	return n.Client.ListLabeled(ctx, dockerutil.EnvLabel, id.String())
}
