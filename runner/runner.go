package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/bridge-service/dockerutil"
	"github.com/roothash-pay/bridge-devnet/bridge-service/procsup"
)

// EnvVarRunID carries the run identifier into task processes, so that
// containers they spawn can be labeled for the final sweep.
const EnvVarRunID = "BRIDGE_BATCH_RUN_ID"

const DefaultMaxConcurrency = 4

// Config parameterizes one batch run.
type Config struct {
	// RunID labels everything spawned by this run, for the cancellation sweep.
	RunID string
	// MaxConcurrency caps the number of task processes running at once.
	MaxConcurrency int
	// LogDir receives one <task>.log file per task.
	LogDir string
	// GracePeriod is the delay between graceful and forceful termination.
	GracePeriod time.Duration
}

func (c Config) withDefaults() Config {
	if c.RunID == "" {
		c.RunID = fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = procsup.DefaultGracePeriod
	}
	return c
}

// Runner schedules tasks FIFO with bounded parallelism. Task processes are
// registered with the process supervisor, so cancellation can terminate the
// full descendant tree of every task, not just the direct children.
type Runner struct {
	log     log.Logger
	cfg     Config
	sup     *procsup.Supervisor
	docker  *dockerutil.Client
	metrics *Metrics
}

type Opt func(r *Runner)

// WithDocker enables the container sweep on cancellation: containers labeled
// with this run's id are force-removed.
func WithDocker(c *dockerutil.Client) Opt {
	return func(r *Runner) { r.docker = c }
}

func WithMetrics(m *Metrics) Opt {
	return func(r *Runner) { r.metrics = m }
}

func New(logger log.Logger, cfg Config, opts ...Opt) *Runner {
	r := &Runner{
		log: logger,
		cfg: cfg.withDefaults(),
		sup: procsup.New(logger),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) RunID() string {
	return r.cfg.RunID
}

// Run executes all tasks and returns the full summary. No task failure
// short-circuits the others; the error return is reserved for setup problems
// and cancellation. After a cancellation every task tree is terminated before
// Run returns.
func (r *Runner) Run(ctx context.Context, tasks []Task) (*Summary, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks to run")
	}
	if err := os.MkdirAll(r.cfg.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir %s: %w", r.cfg.LogDir, err)
	}
	r.log.Info("Starting batch run", "run", r.cfg.RunID,
		"tasks", len(tasks), "max_concurrency", r.cfg.MaxConcurrency)

	results := make([]Result, len(tasks))
	sem := make(chan struct{}, r.cfg.MaxConcurrency)
	var wg sync.WaitGroup

	notStarted := func(task Task) Result {
		return Result{Task: task, Err: fmt.Errorf("run cancelled before task started: %w", context.Cause(ctx))}
	}
	for i, task := range tasks {
		// Tasks start strictly in queue order, each as soon as a slot frees.
		select {
		case <-ctx.Done():
			results[i] = notStarted(task)
			continue
		case sem <- struct{}{}:
		}
		// When the context is done and a slot is free at the same time the
		// select picks at random; a done context must win, or a cancelled
		// run keeps spawning tasks just to terminate them again.
		if ctx.Err() != nil {
			<-sem
			results[i] = notStarted(task)
			continue
		}
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.runTask(ctx, task)
		}(i, task)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		// The per-task paths already terminated their own trees; the sweep
		// catches anything that detached or was spawned outside the trees.
		r.Shutdown(context.WithoutCancel(ctx))
		return &Summary{RunID: r.cfg.RunID, Results: results}, err
	}
	return &Summary{RunID: r.cfg.RunID, Results: results}, nil
}

func (r *Runner) runTask(ctx context.Context, task Task) Result {
	start := time.Now()
	result := func() Result {
		logPath := filepath.Join(r.cfg.LogDir, task.Name+".log")
		logFile, err := os.Create(logPath)
		if err != nil {
			return Result{Task: task, Err: fmt.Errorf("failed to create task log: %w", err)}
		}
		defer logFile.Close()

		extraEnv := append([]string{EnvVarRunID + "=" + r.cfg.RunID}, task.Env...)
		// Spawned without the run context: termination is the supervisor's
		// job, so cancellation stays two-phase instead of an instant kill.
		proc, err := r.sup.Spawn(context.WithoutCancel(ctx), task.Name, logFile,
			extraEnv, task.Command[0], task.Command[1:]...)
		if err != nil {
			return Result{Task: task, LogPath: logPath, Err: err}
		}
		r.metrics.taskStarted()
		r.log.Info("Task started", "run", r.cfg.RunID, "task", task.Name, "pid", proc.Pid(), "log", logPath)

		select {
		case <-proc.Done():
			return Result{Task: task, LogPath: logPath, Err: proc.Wait()}
		case <-ctx.Done():
			r.sup.Terminate(context.WithoutCancel(ctx), proc.Pid(), r.cfg.GracePeriod)
			<-proc.Done()
			return Result{Task: task, LogPath: logPath,
				Err: fmt.Errorf("task terminated, run cancelled: %w", context.Cause(ctx))}
		}
	}()
	result.Duration = time.Since(start)
	r.metrics.taskFinished(result.Passed())

	if result.Passed() {
		r.log.Info("Task passed", "run", r.cfg.RunID, "task", task.Name, "duration", result.Duration)
	} else {
		r.log.Error("Task failed", "run", r.cfg.RunID, "task", task.Name,
			"duration", result.Duration, "log", result.LogPath, "err", result.Err)
	}
	return result
}

// Shutdown terminates every tracked task tree and sweeps labeled containers.
// Safe to call more than once; a termination failure is logged and never
// aborts the rest of the shutdown.
func (r *Runner) Shutdown(ctx context.Context) {
	r.sup.TerminateAll(ctx, r.cfg.GracePeriod)
	if r.docker != nil {
		if err := r.docker.RemoveLabeled(ctx, r.log, dockerutil.RunLabel, r.cfg.RunID); err != nil {
			r.log.Error("Container sweep failed", "run", r.cfg.RunID, "err", err)
		}
	}
}
