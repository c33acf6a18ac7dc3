package reactor

import "fmt"

// Standard errors.
var (
	// ErrAlreadyRunning describes a reactor that is already running. No
	// function in this package returns it: [Reactor.Run] on a running
	// reactor is a no-op that returns nil.
	ErrAlreadyRunning = fmt.Errorf("reactor: already running")

	// ErrInvalidTime is returned by [Reactor.At] when the resolved target
	// is not strictly in the future relative to the current whole-second
	// clock reading.
	ErrInvalidTime = fmt.Errorf("reactor: target time is not strictly in the future")

	// ErrDomain is returned by [Reactor.WatchStream] when flags contains
	// neither WatchRead nor WatchWrite.
	ErrDomain = fmt.Errorf("reactor: watch flags must include read or write")
)

// CallbackError wraps a panic or error raised by a user callback. It
// propagates out of [Reactor.Tick] and [Reactor.Run] unchanged in substance:
// the reactor performs no retry and no internal recovery, it only adds
// enough context (which watcher, which dispatch phase) to make the failure
// diagnosable.
type CallbackError struct {
	// ID is the watcher whose callback failed.
	ID WatcherID
	// Phase identifies the dispatch sub-phase: "immediate", "read",
	// "write", or "timer".
	Phase string
	// Cause is the original error, or the recovered panic value wrapped
	// in an error if the callback panicked rather than returning an error.
	Cause error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("reactor: %s callback %d: %v", e.Phase, e.ID, e.Cause)
}

func (e *CallbackError) Unwrap() error {
	return e.Cause
}

// panicError wraps a recovered panic value that is not already an error,
// so it can participate in the CallbackError.Cause chain via errors.Is/As.
type panicError struct {
	Value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
