// Package runner executes a batch of independent test-file tasks with bounded
// parallelism, captures each task's output to its own log file, and guarantees
// that cancellation tears down the full process tree of every task.
package runner

import (
	"time"
)

// Task is one unit of work: an executable with arguments, run as an isolated
// child process.
type Task struct {
	// Name identifies the task in logs, the summary and its log file name.
	Name string
	// Command is the executable and its arguments.
	Command []string
	// Env holds extra KEY=VALUE pairs for the child process.
	Env []string
}

// Result is the outcome of one finished task.
type Result struct {
	Task Task
	// LogPath is the file holding the task's combined stdout/stderr.
	LogPath  string
	Duration time.Duration
	// Err is nil on success, the exit error on failure,
	// or the cancellation cause if the run was interrupted.
	Err error
}

func (r Result) Passed() bool {
	return r.Err == nil
}
