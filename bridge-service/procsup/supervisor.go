// Package procsup tracks every child process spawned by the harness in a
// single registry, so that signal handlers and teardown paths can terminate
// the full descendant tree through one operation.
//
// Spawned tasks start further children (node processes, containers, shell
// wrappers) that do not die with their parent, so termination walks the
// discovered descendant tree rather than only the directly spawned pid.
package procsup

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/shirou/gopsutil/v4/process"
)

const DefaultGracePeriod = 5 * time.Second

// Supervisor is a registry of spawned processes. All methods are safe for
// concurrent use.
type Supervisor struct {
	log log.Logger

	mu    sync.Mutex
	procs map[int]string // pid -> human-readable name
}

func New(logger log.Logger) *Supervisor {
	return &Supervisor{
		log:   logger,
		procs: make(map[int]string),
	}
}

// Command prepares a command whose process will run in its own process group,
// so group-wide signals reach shell wrappers that re-parent their children.
// The command is not started and not yet tracked.
func (s *Supervisor) Command(ctx context.Context, bin string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// Proc is a handle on one spawned process. The supervisor reaps the process
// in the background as soon as it exits; Wait observes the reaped outcome
// and is safe to call from multiple goroutines.
type Proc struct {
	Name string

	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// Pid returns the process id of the direct child.
func (p *Proc) Pid() int {
	return p.cmd.Process.Pid
}

// Wait blocks until the process exits and returns its exit error, if any.
func (p *Proc) Wait() error {
	<-p.done
	return p.err
}

// Done is closed once the process has exited and been reaped.
func (p *Proc) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the process has already exited.
func (p *Proc) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Spawn starts the given binary with stdout/stderr attached to out and the
// extra environment variables appended, and registers the new process under
// name. The child is reaped in the background, so exited children don't
// linger as zombies and liveness checks stay accurate.
func (s *Supervisor) Spawn(ctx context.Context, name string, out io.Writer, extraEnv []string, bin string, args ...string) (*Proc, error) {
	cmd := s.Command(ctx, bin, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s (%s): %w", name, bin, err)
	}
	s.Track(name, cmd.Process.Pid)
	p := &Proc{Name: name, cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// Track registers an already-started process.
func (s *Supervisor) Track(name string, pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procs[pid] = name
	s.log.Debug("Tracking process", "name", name, "pid", pid)
}

// Untrack removes a process from the registry, e.g. after it exited on its own.
func (s *Supervisor) Untrack(pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.procs, pid)
}

// Tracked returns the pids currently registered.
func (s *Supervisor) Tracked() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, 0, len(s.procs))
	for pid := range s.procs {
		out = append(out, pid)
	}
	return out
}

// Descendants discovers the full descendant tree of pid,
// ordered deepest-first so children can be signalled before their parents.
// Discovery errors are ignored: a process that exited mid-walk simply
// no longer needs termination.
func Descendants(pid int) []int {
	var out []int
	var walk func(p *process.Process)
	walk = func(p *process.Process) {
		children, err := p.Children()
		if err != nil {
			return
		}
		for _, child := range children {
			walk(child)
			out = append(out, int(child.Pid))
		}
	}
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}
	walk(root)
	return out
}

// Terminate performs two-phase termination of pid and all of its discovered
// descendants: SIGTERM deepest-first, a grace period, then SIGKILL for
// whatever remains. A pid that cannot be killed is logged and skipped,
// it never aborts the shutdown of the remaining processes.
func (s *Supervisor) Terminate(ctx context.Context, pid int, grace time.Duration) {
	name := s.name(pid)
	targets := append(Descendants(pid), pid)

	s.log.Info("Terminating process tree", "name", name, "pid", pid, "tree_size", len(targets))
	for _, target := range targets {
		if err := syscall.Kill(target, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
			s.log.Warn("Failed to send SIGTERM", "name", name, "pid", target, "err", err)
		}
	}
	// The process group catches shell wrappers that detached from the tree.
	_ = syscall.Kill(-pid, syscall.SIGTERM)

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !anyAlive(targets) {
			s.Untrack(pid)
			return
		}
		select {
		case <-ctx.Done():
			// continue to the forceful phase below
			deadline = time.Now()
		case <-time.After(100 * time.Millisecond):
		}
	}

	for _, target := range targets {
		if Alive(target) {
			s.log.Warn("Process survived grace period, sending SIGKILL", "name", name, "pid", target)
			if err := syscall.Kill(target, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
				s.log.Error("Failed to kill process", "name", name, "pid", target, "err", err)
			}
		}
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
	s.Untrack(pid)
}

// TerminateAll terminates every tracked process tree.
// Used uniformly by signal handlers and by explicit teardown.
func (s *Supervisor) TerminateAll(ctx context.Context, grace time.Duration) {
	for _, pid := range s.Tracked() {
		s.Terminate(ctx, pid, grace)
	}
}

func (s *Supervisor) name(pid int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name, ok := s.procs[pid]; ok {
		return name
	}
	return "unknown"
}

// Alive reports whether the process still exists.
func Alive(pid int) bool {
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

func anyAlive(pids []int) bool {
	for _, pid := range pids {
		if Alive(pid) {
			return true
		}
	}
	return false
}
