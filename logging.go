package reactor

import (
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// reactorLogger wraps a generic [logiface.Logger] so the rest of the
// package can log without carrying the writer's concrete event type as a
// type parameter everywhere. The default, built by [newDefaultLogger],
// writes JSON via [stumpy] to os.Stderr; [WithLogger] accepts any
// logiface-compatible logger narrowed to [logiface.Event] via
// (*logiface.Logger[E]).Logger(), the same conversion the teacher's own
// js.go-adjacent packages use to stay implementation-agnostic.
type reactorLogger struct {
	log *logiface.Logger[logiface.Event]
}

// newDefaultLogger builds the default stumpy-backed logger.
func newDefaultLogger() *reactorLogger {
	l := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
	)
	return &reactorLogger{log: l.Logger()}
}

// NewLogger wraps an arbitrary logiface logger for use with [WithLogger].
func NewLogger[E logiface.Event](l *logiface.Logger[E]) *reactorLogger {
	return &reactorLogger{log: l.Logger()}
}

// NewNopLogger returns a logger that discards everything, useful for
// benchmarks and tests that don't want logging overhead or noise.
func NewNopLogger() *reactorLogger {
	return &reactorLogger{log: logiface.New[logiface.Event]()}
}

func (l *reactorLogger) tickStarted(tick uint64, timeout float64) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Debug().
		Int64(`tick`, int64(tick)).
		Float64(`timeout_s`, timeout).
		Log(`tick started`)
}

func (l *reactorLogger) watcherRegistered(id WatcherID, k kind) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Debug().
		Int64(`watcher_id`, int64(id)).
		Str(`kind`, k.String()).
		Log(`watcher registered`)
}

func (l *reactorLogger) watcherTransition(id WatcherID, event string) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Debug().
		Int64(`watcher_id`, int64(id)).
		Str(`event`, event).
		Log(`watcher state change`)
}

func (l *reactorLogger) timerFired(id WatcherID, deadline float64, repeating bool) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Info().
		Int64(`watcher_id`, int64(id)).
		Float64(`deadline_s`, deadline).
		Bool(`repeating`, repeating).
		Log(`timer fired`)
}

func (l *reactorLogger) callbackFailed(err *CallbackError) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Err().
		Int64(`watcher_id`, int64(err.ID)).
		Str(`phase`, err.Phase).
		Err(err.Cause).
		Log(`callback failed`)
}

func (l *reactorLogger) idle() {
	if l == nil || l.log == nil {
		return
	}
	l.log.Info().Log(`reactor idle, stopping`)
}
