package reactor

import (
	"math"
	"time"
)

// Reactor is a single-threaded cooperative scheduler multiplexing timers,
// I/O readiness, and deferred immediates on one goroutine. See doc.go for
// the full architecture description; a Reactor is never safe for
// concurrent use.
type Reactor struct {
	registry *registry
	ids      idAllocator

	clock   Clock
	sleeper Sleeper
	mux     Multiplexer
	logger  *reactorLogger

	running bool
	m       metrics
}

// New constructs a Reactor. With no options, it uses the system clock and
// sleeper, a select(2)-backed Multiplexer, and a stumpy/logiface logger
// writing to os.Stderr.
func New(opts ...Option) *Reactor {
	o := resolveOptions(opts)
	return &Reactor{
		registry: newRegistry(),
		clock:    o.clock,
		sleeper:  o.sleeper,
		mux:      o.multiplexer,
		logger:   o.logger,
	}
}

// Run sets the running flag, schedules onStart as an immediate if
// provided, arms any timers registered while the reactor was not running, then
// ticks until Stop is called or a callback fails. If the reactor is
// already running, Run is a no-op that returns nil immediately.
func (r *Reactor) Run(onStart Callback) error {
	if r.running {
		return nil
	}
	r.running = true
	if onStart != nil {
		r.Immediately(onStart)
	}
	r.armUnsetTimers()
	for r.running {
		if err := r.Tick(); err != nil {
			r.running = false
			return err
		}
	}
	return nil
}

// Stop clears the running flag. The tick in progress, if any, still
// completes its remaining phases; the next iteration of Run's loop then
// exits. Safe to call from within a callback.
func (r *Reactor) Stop() {
	r.running = false
}

// Tick executes one iteration of the reactor's dispatch order: arm any
// timers left unset by registrations made while not running, drain
// pending immediates, compute the next timeout, dispatch I/O readiness
// (or sleep, or idle-terminate if there is neither I/O interest nor
// pending timers), then fire any timers that have expired. A callback
// that fails aborts the remainder of the tick; state mutations made
// before the failure persist.
func (r *Reactor) Tick() error {
	r.m.ticks++

	if !r.running {
		r.armUnsetTimers()
	}

	if err := r.runImmediates(); err != nil {
		return err
	}

	timeout := r.computeTimeout()
	r.logger.tickStarted(r.m.ticks, timeout.Seconds())

	switch {
	case !r.registry.readInterestEmpty() || !r.registry.writeInterestEmpty():
		if err := r.dispatchIO(timeout); err != nil {
			return err
		}
	case r.registry.timers.Len() == 0:
		r.logger.idle()
		r.running = false
	case timeout > 0:
		r.sleeper.Sleep(timeout)
	}

	if r.registry.timers.Len() > 0 {
		if err := r.runTimers(); err != nil {
			return err
		}
	}

	return nil
}

// armUnsetTimers realises the deadline of every active (non-disabled)
// timer whose deadline is still unset — i.e. timers registered via Once
// or Repeat while the reactor was not running. A disabled timer
// keeps its unset deadline until it is explicitly enabled.
func (r *Reactor) armUnsetTimers() {
	now := r.clock.Now()
	for _, w := range r.registry.byID {
		if w.kind == kindTimer && !w.disabled && w.deadline == deadlineUnset {
			w.deadline = now + w.interval
			r.registry.timers.insert(w.id, w.deadline)
		}
	}
}

// runImmediates drains and fires every immediate pending at the start of
// the tick; immediates registered during the drain are not visible to it
// (spec.md §4.5). Each immediate is one-shot: its record is removed from
// the registry before the next immediate in the batch runs, and a
// callback cancelling or disabling a later immediate in the same batch is
// honored.
func (r *Reactor) runImmediates() error {
	ids := r.registry.drainImmediates()
	for _, id := range ids {
		w, ok := r.registry.byID[id]
		if !ok || w.disabled {
			continue
		}
		cb := w.immediateCB
		delete(r.registry.byID, id)
		if cerr := r.safeCall(id, "immediate", func() { cb(r, id) }); cerr != nil {
			return cerr
		}
		r.m.immediatesFired++
	}
	return nil
}

// computeTimeout returns the next Select/Sleep timeout: the time until
// the nearest pending timer deadline, floored at zero and rounded to
// four decimal places, or a one-second sentinel when there are no pending
// timers (only meaningful while I/O interest exists).
func (r *Reactor) computeTimeout() time.Duration {
	deadline, ok := r.registry.timers.minDeadline()
	if !ok {
		return time.Second
	}
	delta := deadline - r.clock.Now()
	if delta < 0 {
		delta = 0
	}
	delta = math.Round(delta*10000) / 10000
	return time.Duration(delta * float64(time.Second))
}

// dispatchIO polls the Multiplexer and fires every ready read callback
// before any ready write callback, in each stream's FIFO registration
// order. A callback that cancels a later watcher in the same bucket is
// honored: presence is re-checked immediately before each invocation.
func (r *Reactor) dispatchIO(timeout time.Duration) error {
	readSet := make(map[int]StreamHandle, len(r.registry.readBuckets))
	for key, b := range r.registry.readBuckets {
		readSet[key] = b.handle
	}
	writeSet := make(map[int]StreamHandle, len(r.registry.writeBuckets))
	for key, b := range r.registry.writeBuckets {
		writeSet[key] = b.handle
	}

	readyRead, readyWrite, err := r.mux.Select(readSet, writeSet, timeout)
	if err != nil {
		return err
	}

	if err := r.fireBuckets(readyRead, r.registry.readBuckets, "read", &r.m.readsFired); err != nil {
		return err
	}
	if err := r.fireBuckets(readyWrite, r.registry.writeBuckets, "write", &r.m.writesFired); err != nil {
		return err
	}
	return nil
}

func (r *Reactor) fireBuckets(ready []StreamHandle, buckets map[int]*streamBucket, phase string, counter *uint64) error {
	for _, h := range ready {
		b, ok := buckets[h.Key()]
		if !ok {
			continue
		}
		ids := append([]WatcherID(nil), b.order...)
		for _, id := range ids {
			cb, ok := b.cbs[id]
			if !ok {
				continue
			}
			if cerr := r.safeCall(id, phase, func() { cb(r, id, h) }); cerr != nil {
				return cerr
			}
			*counter++
		}
	}
	return nil
}

// runTimers fires every timer whose deadline had elapsed when the timer
// phase began (after the tick's sleep or I/O dispatch). A timer cancelled or disabled by an earlier callback in
// the same batch is skipped; a repeating timer cancelled or disabled by
// its own callback is not rescheduled.
func (r *Reactor) runTimers() error {
	now := r.clock.Now()
	ids := r.registry.timers.expired(now)
	for _, id := range ids {
		w, ok := r.registry.byID[id]
		if !ok || w.disabled {
			continue
		}
		cb := w.timerCB
		deadline := w.deadline
		repeating := w.repeating
		interval := w.interval

		if cerr := r.safeCall(id, "timer", func() { cb(r, id) }); cerr != nil {
			return cerr
		}
		r.m.timersFired++
		r.logger.timerFired(id, deadline, repeating)

		w2, ok := r.registry.byID[id]
		if !ok || w2.disabled {
			continue
		}
		if repeating {
			next := deadline + interval
			w2.deadline = next
			r.registry.timers.insert(id, next)
		} else {
			delete(r.registry.byID, id)
		}
	}
	return nil
}

// safeCall invokes fn, recovering any panic and wrapping both panics and
// returned errors (callbacks here return nothing, so only panics surface)
// into a *CallbackError identifying the watcher and dispatch phase.
func (r *Reactor) safeCall(id WatcherID, phase string, fn func()) error {
	var cause error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				if e, ok := rec.(error); ok {
					cause = e
				} else {
					cause = panicError{Value: rec}
				}
			}
		}()
		fn()
	}()
	if cause == nil {
		return nil
	}
	cerr := &CallbackError{ID: id, Phase: phase, Cause: cause}
	r.logger.callbackFailed(cerr)
	return cerr
}

// Immediately registers a deferred callback that fires at the start of
// the next tick's immediates drain, once, in FIFO order relative to other
// immediates registered before that drain begins.
func (r *Reactor) Immediately(cb Callback) WatcherID {
	id := r.ids.allocate()
	w := &watcher{id: id, kind: kindImmediate, immediateCB: cb}
	r.registry.register(w)
	r.logger.watcherRegistered(id, kindImmediate)
	return id
}

// Once registers a one-shot timer firing delayMs milliseconds from now.
// If the reactor is not yet running, the deadline stays unset until the
// next Run (or Tick) call arms it relative to that later now().
func (r *Reactor) Once(cb Callback, delayMs float64) WatcherID {
	return r.scheduleTimer(cb, delayMs, false)
}

// Repeat registers a timer that fires every intervalMs milliseconds,
// rescheduled at a fixed rate from its own previous deadline rather than
// from the firing time, so drift does not accumulate under load.
func (r *Reactor) Repeat(cb Callback, intervalMs float64) WatcherID {
	return r.scheduleTimer(cb, intervalMs, true)
}

func (r *Reactor) scheduleTimer(cb Callback, delayMs float64, repeating bool) WatcherID {
	id := r.ids.allocate()
	interval := delayMs / 1000
	deadline := float64(deadlineUnset)
	if r.running {
		deadline = r.clock.Now() + interval
	}
	w := &watcher{
		id:        id,
		kind:      kindTimer,
		timerCB:   cb,
		deadline:  deadline,
		interval:  interval,
		repeating: repeating,
	}
	r.registry.register(w)
	r.logger.watcherRegistered(id, kindTimer)
	return id
}

// At registers a one-shot timer firing at target. target must resolve to
// a point strictly in the future relative to the current whole-second
// clock reading, or ErrInvalidTime is returned and no id is allocated.
func (r *Reactor) At(cb Callback, target time.Time) (WatcherID, error) {
	now := r.clock.Now()
	nowWhole := math.Floor(now)
	targetUnix := float64(target.Unix())
	if targetUnix <= nowWhole {
		return 0, ErrInvalidTime
	}
	delayMs := (targetUnix - now) * 1000
	return r.Once(cb, delayMs), nil
}

// OnReadable registers a readable-stream watcher. If enableNow is false,
// the watcher is created disabled (parked) and takes no effect on the
// read interest set until Enable is called.
func (r *Reactor) OnReadable(stream StreamHandle, cb IOCallback, enableNow bool) WatcherID {
	return r.registerIOWatcher(kindReadIO, stream, cb, enableNow)
}

// OnWritable registers a writable-stream watcher, mirroring OnReadable.
func (r *Reactor) OnWritable(stream StreamHandle, cb IOCallback, enableNow bool) WatcherID {
	return r.registerIOWatcher(kindWriteIO, stream, cb, enableNow)
}

func (r *Reactor) registerIOWatcher(k kind, stream StreamHandle, cb IOCallback, enableNow bool) WatcherID {
	id := r.ids.allocate()
	w := &watcher{id: id, kind: k, stream: stream, ioCB: cb, disabled: !enableNow}
	r.registry.register(w)
	r.logger.watcherRegistered(id, k)
	return id
}

// Cancel permanently removes a watcher, active or disabled. Idempotent:
// cancelling an unknown or already-cancelled id is a no-op.
func (r *Reactor) Cancel(id WatcherID) {
	r.registry.cancel(id)
	r.logger.watcherTransition(id, "cancelled")
}

// Disable parks a watcher: it is removed from its active index (timer
// heap, stream bucket, or immediates queue) but its record is kept, so
// Enable can restore it later. No-op if id is unknown or already
// disabled.
func (r *Reactor) Disable(id WatcherID) {
	r.registry.disable(id)
	r.logger.watcherTransition(id, "disabled")
}

// Enable restores a previously disabled watcher. A timer whose deadline
// went unset while parked (it was disabled before ever running, or its
// deadline was never armed) is armed relative to now() at the moment of
// this call. No-op if id is unknown or not disabled.
func (r *Reactor) Enable(id WatcherID) {
	w, ok := r.registry.enable(id)
	if !ok {
		return
	}
	if w.kind == kindTimer && w.deadline == deadlineUnset {
		w.deadline = r.clock.Now() + w.interval
		r.registry.timers.insert(w.id, w.deadline)
	}
	r.logger.watcherTransition(id, "enabled")
}

// WatchFlags selects the interest direction(s) and initial state for
// WatchStream.
type WatchFlags int

const (
	// WatchRead requests a readable-stream watcher.
	WatchRead WatchFlags = 1 << iota
	// WatchWrite requests a writable-stream watcher.
	WatchWrite
	// WatchNow creates the watcher already enabled, equivalent to
	// enableNow=true on OnReadable/OnWritable.
	WatchNow
)

// WatchStream is a convenience wrapper over OnReadable/OnWritable driven
// by a flag set rather than two separate calls. flags must include
// WatchRead or WatchWrite (or both, in which case the read watcher is
// registered); omitting both returns ErrDomain and allocates no id.
func (r *Reactor) WatchStream(stream StreamHandle, flags WatchFlags, cb IOCallback) (WatcherID, error) {
	if flags&(WatchRead|WatchWrite) == 0 {
		return 0, ErrDomain
	}
	enableNow := flags&WatchNow != 0
	if flags&WatchRead != 0 {
		return r.OnReadable(stream, cb, enableNow), nil
	}
	return r.OnWritable(stream, cb, enableNow), nil
}

// Metrics and Running are exposed so a host application can inspect
// reactor health without reaching into internals.

// Running reports whether the reactor is currently inside a Run loop.
func (r *Reactor) Running() bool { return r.running }
