package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger writes codeflow's diagnostics to w, which is stderr in main so
// diagrams on stdout stay clean. Timestamps look like "14:32:01.45".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// stage times one pipeline step of a command: building the flowchart,
// rendering, or tracing.
type stage struct {
	logger *log.Logger
	name   string
	start  time.Time
}

func startStage(l *log.Logger, name string) *stage {
	l.Debug("stage started", "stage", name)
	return &stage{logger: l, name: name, start: time.Now()}
}

// done logs msg with the stage name, whether the result came from the
// cache, and the elapsed time, e.g.
//
//	INFO Built flowchart stage=build nodes=4 cached=false took=3ms
func (s *stage) done(msg string, cached bool, keyvals ...any) {
	kv := append([]any{"stage", s.name}, keyvals...)
	kv = append(kv, "cached", cached, "took", time.Since(s.start).Round(time.Millisecond))
	s.logger.Info(msg, kv...)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// commandLogger returns the logger setup attached to the command context,
// or log.Default() for helpers called outside a command.
func commandLogger(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
