package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/log"

	"github.com/roothash-pay/bridge-devnet/bridge-service/dockerutil"
	bridgelog "github.com/roothash-pay/bridge-devnet/bridge-service/log"
	"github.com/roothash-pay/bridge-devnet/bridge-service/metrics"
	"github.com/roothash-pay/bridge-devnet/bridge-service/procsup"
	"github.com/roothash-pay/bridge-devnet/descriptors"
	"github.com/roothash-pay/bridge-devnet/devstack/reuse"
	"github.com/roothash-pay/bridge-devnet/devstack/stack"
	"github.com/roothash-pay/bridge-devnet/runner"
	"github.com/roothash-pay/bridge-devnet/runner/flags"
)

var (
	Version   = "v0.0.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp()
	app.Name = "bridge-batch"
	app.Usage = "runs bridge e2e test binaries with bounded parallelism"
	app.Description = "bridge-batch discovers test-file tasks, runs them as isolated child processes " +
		"with a concurrency cap and per-task logs, and guarantees full process-tree " +
		"termination on interruption."
	app.Version = Version
	app.Flags = flags.Flags
	app.Action = run
	app.Commands = []*cli.Command{
		{
			Name:   "teardown",
			Usage:  "tear down a reusable shared environment left running by a previous leader",
			Flags:  flags.TeardownFlags,
			Action: teardown,
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(cliCtx *cli.Context) error {
	logger := setupLogger(cliCtx)
	ctx := cliCtx.Context

	tasks, err := loadTasks(cliCtx)
	if err != nil {
		return err
	}

	cfg := runner.Config{
		RunID:          cliCtx.String(flags.RunIDFlag.Name),
		MaxConcurrency: cliCtx.Int(flags.MaxConcurrencyFlag.Name),
		LogDir:         cliCtx.String(flags.LogDirFlag.Name),
		GracePeriod:    cliCtx.Duration(flags.GracePeriodFlag.Name),
	}

	var opts []runner.Opt
	if docker, err := dockerutil.NewClient(); err == nil {
		defer docker.Close()
		opts = append(opts, runner.WithDocker(docker))
	} else {
		logger.Warn("Docker daemon not reachable, container sweep disabled", "err", err)
	}

	if cliCtx.Bool(flags.MetricsEnabledFlag.Name) {
		registry := metrics.NewRegistry()
		opts = append(opts, runner.WithMetrics(runner.NewMetrics(registry)))
		srv, err := metrics.StartServer(registry,
			cliCtx.String(flags.MetricsAddrFlag.Name), cliCtx.Int(flags.MetricsPortFlag.Name))
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		logger.Info("Started metrics server", "addr", srv.Addr())
		defer func() {
			if err := srv.Stop(context.Background()); err != nil {
				logger.Error("Failed to stop metrics server", "err", err)
			}
		}()
	}

	r := runner.New(logger, cfg, opts...)
	summary, err := r.Run(ctx, tasks)
	if summary != nil {
		summary.Log(logger)
	}
	if err != nil {
		return fmt.Errorf("batch run aborted: %w", err)
	}
	if failed := summary.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d tasks failed", len(failed), len(summary.Results))
	}
	return nil
}

func loadTasks(cliCtx *cli.Context) ([]runner.Task, error) {
	if manifest := cliCtx.String(flags.ManifestFlag.Name); manifest != "" {
		return runner.LoadManifest(manifest)
	}
	dir := cliCtx.String(flags.TasksDirFlag.Name)
	tasks, err := runner.Discover(dir, cliCtx.String(flags.TasksPatternFlag.Name))
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks found under %s", dir)
	}
	return tasks, nil
}

// teardown removes everything a reusable shared environment left behind:
// marked processes, labeled containers, the descriptor and the lock file.
func teardown(cliCtx *cli.Context) error {
	logger := setupLogger(cliCtx)
	ctx := cliCtx.Context

	id := stack.SanitizeEnvID(cliCtx.String(flags.EnvIDFlag.Name))
	dir := cliCtx.String(flags.EnvDirFlag.Name)
	grace := cliCtx.Duration(flags.GracePeriodFlag.Name)

	pids, err := procsup.FindByEnv(ctx, stack.EnvMarkerFor(id))
	if err != nil {
		return err
	}
	sup := procsup.New(logger)
	for _, pid := range pids {
		sup.Terminate(ctx, pid, grace)
	}

	if docker, err := dockerutil.NewClient(); err == nil {
		defer docker.Close()
		if err := docker.RemoveLabeled(ctx, logger, dockerutil.EnvLabel, id.String()); err != nil {
			logger.Error("Container sweep failed", "env", id, "err", err)
		}
	} else {
		logger.Warn("Docker daemon not reachable, skipping container sweep", "err", err)
	}

	if err := descriptors.Remove(descriptors.PathFor(dir, id)); err != nil {
		logger.Error("Failed to remove environment descriptor", "env", id, "err", err)
	}
	if err := reuse.LockFor(dir, id).Release(); err != nil {
		logger.Error("Failed to remove lock file", "env", id, "err", err)
	}

	logger.Info("Environment torn down", "env", id, "processes", len(pids))
	return nil
}

func setupLogger(cliCtx *cli.Context) log.Logger {
	logger := bridgelog.NewLogger(os.Stdout, bridgelog.ReadCLIConfig(cliCtx))
	bridgelog.SetGlobalLogDefault(logger)
	return logger
}
