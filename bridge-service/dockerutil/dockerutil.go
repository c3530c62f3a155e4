// Package dockerutil provides the thin docker-daemon access the harness needs:
// finding and force-removing containers tagged with a harness label.
package dockerutil

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/ethereum/go-ethereum/log"
)

// EnvLabel tags containers belonging to one harness environment.
const EnvLabel = "bridge-devnet.env"

// RunLabel tags containers belonging to one batch-runner invocation.
const RunLabel = "bridge-devnet.run"

type Client struct {
	inner *client.Client
}

func NewClient() (*Client, error) {
	inner, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Client{inner: inner}, nil
}

func (c *Client) Close() error {
	return c.inner.Close()
}

// ListLabeled returns the container IDs (running or not) carrying label=value.
func (c *Client) ListLabeled(ctx context.Context, label, value string) ([]string, error) {
	containers, err := c.inner.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", label+"="+value)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers with %s=%s: %w", label, value, err)
	}
	ids := make([]string, 0, len(containers))
	for _, ctr := range containers {
		ids = append(ids, ctr.ID)
	}
	return ids, nil
}

// RemoveLabeled force-removes every container carrying label=value.
// Removal failures are logged and do not stop the sweep.
func (c *Client) RemoveLabeled(ctx context.Context, logger log.Logger, label, value string) error {
	ids, err := c.ListLabeled(ctx, label, value)
	if err != nil {
		return err
	}
	for _, id := range ids {
		logger.Info("Removing container", "id", id, "label", label, "value", value)
		if err := c.inner.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
			logger.Error("Failed to remove container", "id", id, "err", err)
		}
	}
	return nil
}
