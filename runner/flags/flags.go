package flags

import (
	"time"

	"github.com/urfave/cli/v2"

	bridgelog "github.com/roothash-pay/bridge-devnet/bridge-service/log"
	"github.com/roothash-pay/bridge-devnet/devstack/shared"
	"github.com/roothash-pay/bridge-devnet/runner"
)

const EnvVarPrefix = "BRIDGE_BATCH"

func prefixEnvVars(names ...string) []string {
	envs := make([]string, 0, len(names))
	for _, name := range names {
		envs = append(envs, EnvVarPrefix+"_"+name)
	}
	return envs
}

var (
	TasksDirFlag = &cli.StringFlag{
		Name:    "tasks.dir",
		Usage:   "Directory holding the task executables to discover",
		Value:   "./e2e",
		EnvVars: prefixEnvVars("TASKS_DIR"),
	}
	TasksPatternFlag = &cli.StringFlag{
		Name:    "tasks.pattern",
		Usage:   "Glob matching the task executables inside the tasks directory",
		Value:   runner.DefaultPattern,
		EnvVars: prefixEnvVars("TASKS_PATTERN"),
	}
	ManifestFlag = &cli.StringFlag{
		Name:    "tasks.manifest",
		Usage:   "YAML task manifest, used instead of directory discovery when set",
		EnvVars: prefixEnvVars("TASKS_MANIFEST"),
	}
	MaxConcurrencyFlag = &cli.IntFlag{
		Name:    "max-concurrency",
		Usage:   "Maximum number of task processes running at once",
		Value:   runner.DefaultMaxConcurrency,
		EnvVars: prefixEnvVars("MAX_CONCURRENCY"),
	}
	LogDirFlag = &cli.StringFlag{
		Name:    "logs.dir",
		Usage:   "Directory receiving one log file per task",
		Value:   "./batch-logs",
		EnvVars: prefixEnvVars("LOGS_DIR"),
	}
	RunIDFlag = &cli.StringFlag{
		Name:    "run-id",
		Usage:   "Identifier labeling everything spawned by this run, time-derived when empty",
		EnvVars: prefixEnvVars("RUN_ID"),
	}
	GracePeriodFlag = &cli.DurationFlag{
		Name:    "grace-period",
		Usage:   "Delay between graceful and forceful termination on cancellation",
		Value:   5 * time.Second,
		EnvVars: prefixEnvVars("GRACE_PERIOD"),
	}
	MetricsEnabledFlag = &cli.BoolFlag{
		Name:    "metrics.enabled",
		Usage:   "Enable the metrics server",
		EnvVars: prefixEnvVars("METRICS_ENABLED"),
	}
	MetricsAddrFlag = &cli.StringFlag{
		Name:    "metrics.addr",
		Usage:   "Metrics listening address",
		Value:   "0.0.0.0",
		EnvVars: prefixEnvVars("METRICS_ADDR"),
	}
	MetricsPortFlag = &cli.IntFlag{
		Name:    "metrics.port",
		Usage:   "Metrics listening port",
		Value:   7300,
		EnvVars: prefixEnvVars("METRICS_PORT"),
	}
)

var (
	EnvIDFlag = &cli.StringFlag{
		Name:    "env.id",
		Usage:   "Identifier of the shared environment to tear down",
		Value:   string(shared.DefaultReusableEnvID),
		EnvVars: prefixEnvVars("ENV_ID"),
	}
	EnvDirFlag = &cli.StringFlag{
		Name:    "env.dir",
		Usage:   "Harness directory holding lock files and environment descriptors",
		Value:   shared.ReuseDir(),
		EnvVars: prefixEnvVars("ENV_DIR"),
	}
)

// TeardownFlags configure the teardown subcommand.
var TeardownFlags = append([]cli.Flag{
	EnvIDFlag,
	EnvDirFlag,
	GracePeriodFlag,
}, bridgelog.CLIFlags(EnvVarPrefix)...)

var Flags []cli.Flag

func init() {
	Flags = []cli.Flag{
		TasksDirFlag,
		TasksPatternFlag,
		ManifestFlag,
		MaxConcurrencyFlag,
		LogDirFlag,
		RunIDFlag,
		GracePeriodFlag,
		MetricsEnabledFlag,
		MetricsAddrFlag,
		MetricsPortFlag,
	}
	Flags = append(Flags, bridgelog.CLIFlags(EnvVarPrefix)...)
}
