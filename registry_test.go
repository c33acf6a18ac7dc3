package reactor

import "testing"

// TestRegistry_StreamBucketGCsWhenEmpty covers invariant 2: a stream is in
// the interest set iff its bucket is non-empty.
func TestRegistry_StreamBucketGCsWhenEmpty(t *testing.T) {
	reg := newRegistry()
	stream := fakeStream{key: 7}

	w := &watcher{id: 1, kind: kindReadIO, stream: stream, ioCB: func(*Reactor, WatcherID, StreamHandle) {}}
	reg.register(w)

	if reg.readInterestEmpty() {
		t.Fatal("read interest should be non-empty after registering a readable watcher")
	}

	reg.cancel(1)

	if !reg.readInterestEmpty() {
		t.Fatal("read interest should be empty once the only watcher on the stream is cancelled")
	}
	if _, ok := reg.readBuckets[stream.Key()]; ok {
		t.Fatal("empty bucket should have been garbage collected")
	}
}

func TestRegistry_CancelIsIdempotent(t *testing.T) {
	reg := newRegistry()
	w := &watcher{id: 1, kind: kindImmediate, immediateCB: func(*Reactor, WatcherID) {}}
	reg.register(w)

	reg.cancel(1)
	reg.cancel(1) // must not panic
	reg.cancel(42)

	if _, ok := reg.get(1); ok {
		t.Fatal("cancelled watcher should be gone")
	}
}

func TestRegistry_DisableRemovesFromActiveIndexButKeepsRecord(t *testing.T) {
	reg := newRegistry()
	w := &watcher{id: 1, kind: kindTimer, timerCB: func(*Reactor, WatcherID) {}, deadline: 5.0, interval: 1.0}
	reg.register(w)

	reg.disable(1)

	if _, ok := reg.timers.minDeadline(); ok {
		t.Fatal("disabled timer must be removed from the timer heap")
	}
	got, ok := reg.get(1)
	if !ok {
		t.Fatal("disabled watcher record must still exist in byID")
	}
	if !got.disabled {
		t.Fatal("watcher.disabled must be true after disable")
	}
	if got.deadline != 5.0 {
		t.Fatalf("preserved deadline = %v, want 5.0 (disable must not alter it)", got.deadline)
	}
}

func TestRegistry_EnableReinsertsIntoActiveIndex(t *testing.T) {
	reg := newRegistry()
	w := &watcher{id: 1, kind: kindTimer, timerCB: func(*Reactor, WatcherID) {}, deadline: 5.0, interval: 1.0}
	reg.register(w)
	reg.disable(1)

	got, ok := reg.enable(1)
	if !ok {
		t.Fatal("enable() of a disabled watcher should report ok=true")
	}
	if got.disabled {
		t.Fatal("watcher.disabled must be false after enable")
	}
	d, ok := reg.timers.minDeadline()
	if !ok || d != 5.0 {
		t.Fatalf("minDeadline() = (%v, %v), want (5.0, true)", d, ok)
	}
}

func TestRegistry_EnableUnknownOrActiveIsNoop(t *testing.T) {
	reg := newRegistry()
	if _, ok := reg.enable(99); ok {
		t.Fatal("enable() of an unknown id should report ok=false")
	}

	w := &watcher{id: 1, kind: kindImmediate, immediateCB: func(*Reactor, WatcherID) {}}
	reg.register(w)
	if _, ok := reg.enable(1); ok {
		t.Fatal("enable() of an already-active watcher should report ok=false")
	}
}

func TestRegistry_DrainImmediatesClearsQueueAndExcludesNewRegistrations(t *testing.T) {
	reg := newRegistry()
	reg.register(&watcher{id: 1, kind: kindImmediate, immediateCB: func(*Reactor, WatcherID) {}})
	reg.register(&watcher{id: 2, kind: kindImmediate, immediateCB: func(*Reactor, WatcherID) {}})

	drained := reg.drainImmediates()
	if len(drained) != 2 || drained[0] != 1 || drained[1] != 2 {
		t.Fatalf("drainImmediates() = %v, want [1 2]", drained)
	}

	// A third registration made after the drain is not in the first
	// snapshot; it waits in the live queue and is returned by the next drain.
	reg.register(&watcher{id: 3, kind: kindImmediate, immediateCB: func(*Reactor, WatcherID) {}})
	second := reg.drainImmediates()
	if len(second) != 1 || second[0] != 3 {
		t.Fatalf("second drainImmediates() = %v, want [3]", second)
	}
}

func TestRegistry_ReadAndWriteBucketsAreIndependent(t *testing.T) {
	reg := newRegistry()
	stream := fakeStream{key: 1}
	reg.register(&watcher{id: 1, kind: kindReadIO, stream: stream, ioCB: func(*Reactor, WatcherID, StreamHandle) {}})
	reg.register(&watcher{id: 2, kind: kindWriteIO, stream: stream, ioCB: func(*Reactor, WatcherID, StreamHandle) {}})

	reg.cancel(1)

	if !reg.readInterestEmpty() {
		t.Fatal("read interest should be empty after cancelling the only read watcher")
	}
	if reg.writeInterestEmpty() {
		t.Fatal("write interest should remain non-empty; read and write buckets must not interact")
	}
}
