// Package reactor provides a single-threaded, cooperative event reactor:
// a scheduler that multiplexes wall-clock timers, I/O readiness on byte
// streams, and deferred immediate callbacks onto one goroutine.
//
// # Architecture
//
// [Reactor] owns four registries (timers, readable streams, writable
// streams, immediates) and one driver loop. Callers register interest via
// [Reactor.Once], [Reactor.Repeat], [Reactor.At], [Reactor.OnReadable], and
// [Reactor.OnWritable], each returning a [WatcherID] that can later be
// passed to [Reactor.Cancel], [Reactor.Disable], or [Reactor.Enable].
//
// # Collaborators
//
// The reactor delegates wall-clock time to a [Clock], blocking sleep to a
// [Sleeper], and readiness polling to a [Multiplexer]. Production callers
// get working defaults from [New]; tests substitute fakes via [WithClock],
// [WithSleeper], and [WithMultiplexer].
//
// # Thread Safety
//
// A [Reactor] is NOT safe for concurrent use. All registration, dispatch,
// and cancellation happens on the goroutine that calls [Reactor.Run] or
// [Reactor.Tick]. Callbacks may register, cancel, disable, or enable any
// watcher, including their own, without further synchronization.
//
// # Usage
//
//	r := reactor.New()
//	r.Once(func(r *reactor.Reactor, id reactor.WatcherID) {
//	    fmt.Println("fired")
//	}, 50)
//	if err := r.Run(nil); err != nil {
//	    log.Fatal(err)
//	}
package reactor
