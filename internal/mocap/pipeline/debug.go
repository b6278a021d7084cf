package pipeline

import (
	"io"
	"log"
	"sync/atomic"
)

// logStreams is swapped as a whole so a tick never sees a half-configured
// set of loggers.
type logStreams struct {
	ops, diag, trace *log.Logger
}

var streams atomic.Pointer[logStreams]

// SetLogWriters configures the three logging streams for the pipeline
// package. Pass nil for any writer to disable that stream. It is safe to call
// while the driver is running.
func SetLogWriters(ops, diag, trace io.Writer) {
	streams.Store(&logStreams{
		ops:   newLogger("[pipeline] ", ops),
		diag:  newLogger("[pipeline] ", diag),
		trace: newLogger("[pipeline] ", trace),
	})
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func current() logStreams {
	if s := streams.Load(); s != nil {
		return *s
	}
	return logStreams{}
}

// opsf logs to the ops stream (dropped detections, scene write failures).
func opsf(format string, args ...interface{}) {
	if l := current().ops; l != nil {
		l.Printf(format, args...)
	}
}

// diagf logs to the diag stream (track creation, noise changes, routing).
func diagf(format string, args ...interface{}) {
	if l := current().diag; l != nil {
		l.Printf(format, args...)
	}
}

// tracef logs to the trace stream (per-update and per-tick telemetry).
func tracef(format string, args ...interface{}) {
	if l := current().trace; l != nil {
		l.Printf(format, args...)
	}
}
