package procsup

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/shirou/gopsutil/v4/process"
)

// FindByEnv scans the host process table for processes whose environment
// contains the given KEY=VALUE entry. The scanning process itself is
// excluded. Processes that exit mid-scan or refuse inspection are skipped.
func FindByEnv(ctx context.Context, entry string) ([]int, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	self := int32(os.Getpid())
	var found []int
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		environ, err := p.EnvironWithContext(ctx)
		if err != nil {
			continue
		}
		if slices.Contains(environ, entry) {
			found = append(found, int(p.Pid))
		}
	}
	return found, nil
}

// Cmdline returns the command line of pid, or an empty string if the process
// is gone or not inspectable.
func Cmdline(ctx context.Context, pid int) string {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return ""
	}
	cmdline, _ := p.CmdlineWithContext(ctx)
	return cmdline
}
