package logging

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/truckmatch/routecompare/internal/commands"
	"github.com/truckmatch/routecompare/internal/dispatcher"
	"github.com/truckmatch/routecompare/internal/playback"
	"github.com/truckmatch/routecompare/internal/session"
	"github.com/truckmatch/routecompare/pkg/core"
)

// Command outcomes written to the file log.
const (
	OutcomeOK        = "ok"
	OutcomeRejected  = "rejected"
	OutcomeDropped   = "dropped"
	OutcomeClosed    = "closed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// DispatcherLogger writes command dispatch events to the zerolog file log.
// Every event carries the scenario on screen when it was written, and a
// command error is split into the error text and its outcome.
type DispatcherLogger struct {
	logger   zerolog.Logger
	provider ContextProvider
}

// NewDispatcherLogger creates a DispatcherLogger. provider may be nil.
func NewDispatcherLogger(logger zerolog.Logger, provider ContextProvider) *DispatcherLogger {
	return &DispatcherLogger{logger: logger, provider: provider}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	l.write(l.logger.Debug(), msg, keysAndValues)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	l.write(l.logger.Info(), msg, keysAndValues)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	l.write(l.logger.Error(), msg, keysAndValues)
}

func (l *DispatcherLogger) write(e *zerolog.Event, msg string, keysAndValues []any) {
	if !e.Enabled() {
		return
	}
	if l.provider != nil {
		for _, a := range l.provider() {
			e = e.Str(a.Key, a.Value.String())
		}
	}

	fields := toFields(keysAndValues)
	if err, ok := fields["error"].(error); ok {
		delete(fields, "error")
		e = e.Err(err).Str("outcome", Outcome(err))
	}
	if d, ok := fields["duration"].(time.Duration); ok {
		delete(fields, "duration")
		e = e.Dur("duration", d)
	}
	e.Fields(fields).Msg(msg)
}

// Outcome classifies the error returned by a command handler.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case errors.Is(err, dispatcher.ErrQueueFull):
		return OutcomeDropped
	case errors.Is(err, dispatcher.ErrClosed), errors.Is(err, session.ErrClosed):
		return OutcomeClosed
	case errors.Is(err, commands.ErrUsage),
		errors.Is(err, dispatcher.ErrUnknownCommand),
		errors.Is(err, playback.ErrInvalidSpeed),
		errors.Is(err, core.ErrInvalidCoordinate),
		errors.Is(err, core.ErrMissingDest),
		errors.Is(err, core.ErrMissingOrig):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

// toFields converts key-value pairs to a zerolog field map. Non-string keys
// and a trailing key without a value are skipped.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
