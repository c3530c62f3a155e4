package runner

import (
	"github.com/ethereum/go-ethereum/log"
)

// Summary is the complete outcome of a batch run, one entry per task.
type Summary struct {
	RunID   string
	Results []Result
}

func (s *Summary) AllPassed() bool {
	for _, r := range s.Results {
		if !r.Passed() {
			return false
		}
	}
	return true
}

func (s *Summary) Failed() []Result {
	var out []Result
	for _, r := range s.Results {
		if !r.Passed() {
			out = append(out, r)
		}
	}
	return out
}

// Log prints the per-task outcomes and totals.
// Failures name the log file holding the task's full output.
func (s *Summary) Log(logger log.Logger) {
	for _, r := range s.Results {
		if r.Passed() {
			logger.Info("PASS", "task", r.Task.Name, "duration", r.Duration)
		} else {
			logger.Error("FAIL", "task", r.Task.Name, "duration", r.Duration,
				"log", r.LogPath, "err", r.Err)
		}
	}
	failed := len(s.Failed())
	logger.Info("Batch run finished", "run", s.RunID,
		"total", len(s.Results), "passed", len(s.Results)-failed, "failed", failed)
}
