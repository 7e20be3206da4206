package main

import (
	"log/slog"
	"os"

	"github.com/robfig/cron/v3"

	"github.com/caesar-terminal/offerwatch/internal/breaker"
)

// cronLogger routes cron's own messages through slog.
type cronLogger struct {
	l *slog.Logger
}

func newCronLogger(l *slog.Logger) cron.Logger {
	return cronLogger{l: l.With("component", "cron")}
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}

// applyHaltSignal halts the gate on haltSignal and resumes it on
// resumeSignal.
func applyHaltSignal(gate *breaker.Breaker, sig os.Signal) {
	switch sig {
	case haltSignal:
		gate.ManualHalt()
		slog.Warn("auto-confirm halted by signal", "signal", sig.String())
	case resumeSignal:
		gate.Resume()
		slog.Info("auto-confirm resumed by signal", "signal", sig.String())
	}
}
