// Package cli implements the fieldbook command-line interface.
//
// The commands cover the life of a field trial: generating and checking a
// layout (layout, verify, plan, render) and preparing the data collected
// from it (join, clean, score, chart). serve starts the HTTP API.
//
// # Logging
//
// One charmbracelet logger is built per invocation and carried in the
// command context. --verbose (-v) lowers it to debug. Table commands hand a
// prefixed copy to the library calls they make, so a line from JoinFiles
// or outlier.Clean reads "join: read 3 of 12 files".
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates the CLI logger. Timestamps read "15:04:05.00".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one step of a table command.
type progress struct {
	logger *log.Logger
	step   string
	start  time.Time
}

func newProgress(l *log.Logger, step string) *progress {
	return &progress{logger: l, step: step, start: time.Now()}
}

// done logs the step at info with keyvals and the elapsed time in ms.
func (p *progress) done(keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(p.step, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger set by the root command, or
// log.Default when a command runs without one.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// commandLogger returns the context logger prefixed with the command name.
func commandLogger(ctx context.Context, command string) *log.Logger {
	return loggerFromContext(ctx).WithPrefix(command)
}
