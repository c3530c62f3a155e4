package log

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"
)

const (
	LevelFlagName  = "log.level"
	FormatFlagName = "log.format"
	ColorFlagName  = "log.color"
	PidFlagName    = "log.pid"
)

// CLIFlags creates flag definitions for the logging utils.
func CLIFlags(envPrefix string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    LevelFlagName,
			Usage:   "The lowest log level that will be output",
			Value:   "info",
			EnvVars: []string{envPrefix + "_LOG_LEVEL"},
			Action: func(_ *cli.Context, s string) error {
				_, err := LevelFromString(s)
				return err
			},
		},
		&cli.StringFlag{
			Name:    FormatFlagName,
			Usage:   "Format the log output. Supported formats: 'terminal', 'logfmt', 'json'",
			Value:   string(FormatTerminal),
			EnvVars: []string{envPrefix + "_LOG_FORMAT"},
			Action: func(_ *cli.Context, s string) error {
				_, err := FormatFromString(s)
				return err
			},
		},
		&cli.BoolFlag{
			Name:    ColorFlagName,
			Usage:   "Color the log output if in terminal mode",
			EnvVars: []string{envPrefix + "_LOG_COLOR"},
		},
		&cli.BoolFlag{
			Name:    PidFlagName,
			Usage:   "Tag every log record with the process id",
			EnvVars: []string{envPrefix + "_LOG_PID"},
		},
	}
}

// LevelFromString parses a log level string, case and whitespace insensitive.
func LevelFromString(s string) (slog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "trace", "trce":
		return LevelTrace, nil
	case "debug", "dbug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error", "eror":
		return slog.LevelError, nil
	case "crit":
		return LevelCrit, nil
	default:
		return slog.LevelDebug, fmt.Errorf("unknown level: %q", s)
	}
}

const (
	LevelTrace slog.Level = -8
	LevelCrit  slog.Level = 12
)

// ReadCLIConfig converts the parsed CLI flags into a CLIConfig.
// Flag values were validated by the flag actions already; unparsable values
// keep the defaults.
func ReadCLIConfig(ctx *cli.Context) CLIConfig {
	cfg := DefaultCLIConfig()
	if lvl, err := LevelFromString(ctx.String(LevelFlagName)); err == nil {
		cfg.Level = lvl
	}
	if format, err := FormatFromString(ctx.String(FormatFlagName)); err == nil {
		cfg.Format = format
	}
	if ctx.IsSet(ColorFlagName) {
		cfg.Color = ctx.Bool(ColorFlagName)
	}
	cfg.Pid = ctx.Bool(PidFlagName)
	return cfg
}
