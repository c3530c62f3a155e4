package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/exp/slices"
)

type Format string

const (
	FormatTerminal Format = "terminal"
	FormatLogFmt   Format = "logfmt"
	FormatJSON     Format = "json"
)

var Formats = []Format{FormatTerminal, FormatLogFmt, FormatJSON}

func FormatFromString(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("unrecognized log format: %q", s)
	}
	return f, nil
}

// CLIConfig configures logging output for CLI tools and test drivers.
type CLIConfig struct {
	Level  slog.Level
	Color  bool
	Format Format
	// Pid enables tagging of every log record with the process ID,
	// useful when many harness processes write to the same stream.
	Pid bool
}

func DefaultCLIConfig() CLIConfig {
	return CLIConfig{
		Level:  log.LevelInfo,
		Format: FormatTerminal,
		Color:  isTerminal(os.Stdout),
	}
}

func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func handler(wr io.Writer, cfg CLIConfig) slog.Handler {
	switch cfg.Format {
	case FormatJSON:
		return log.JSONHandlerWithLevel(wr, cfg.Level)
	case FormatLogFmt:
		return log.LogfmtHandlerWithLevel(wr, cfg.Level)
	case FormatTerminal, "":
		return log.NewTerminalHandlerWithLevel(wr, cfg.Level, cfg.Color)
	default:
		panic(fmt.Errorf("unknown log format: %v", cfg.Format))
	}
}

// NewLogger creates a logger based on the supplied configuration.
func NewLogger(wr io.Writer, cfg CLIConfig) log.Logger {
	logger := log.NewLogger(handler(wr, cfg))
	if cfg.Pid {
		logger = logger.With("pid", os.Getpid())
	}
	return logger
}

// SetGlobalLogDefault sets the provided logger as the geth global default,
// so that libraries logging through log.Root() end up in the same stream.
func SetGlobalLogDefault(logger log.Logger) {
	log.SetDefault(logger)
}
