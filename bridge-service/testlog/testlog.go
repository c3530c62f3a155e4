// Package testlog provides a log handler for unit tests.
package testlog

import (
	"bytes"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// Testing is the minimal subset of testing.TB needed by the test logger.
// It is satisfied by *testing.T and by the harness devtest handles.
type Testing interface {
	Logf(format string, args ...any)
	Helper()
}

// logWriter buffers handler output and flushes complete lines to t.Logf,
// so log records show up attributed to the right test.
type logWriter struct {
	t   Testing
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// incomplete line, keep it buffered
			w.buf.WriteString(line)
			return len(p), nil
		}
		w.t.Logf("%s", line[:len(line)-1])
	}
}

// Logger returns a logger which logs to the unit test log of t at the given level.
func Logger(t Testing, level slog.Level) log.Logger {
	return log.NewLogger(log.NewTerminalHandlerWithLevel(&logWriter{t: t}, level, false))
}
