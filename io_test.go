package reactor

import (
	"io"
	"os"
	"testing"
)

// TestS4_ReadablePipe covers scenario S4: a pipe with one byte buffered;
// onReadable(r, cb); inside cb, read the byte then cancel(id). Exactly
// one invocation; the reactor then idle-stops.
func TestS4_ReadablePipe(t *testing.T) {
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() = %v", err)
	}
	defer pr.Close()
	defer pw.Close()

	if _, err := pw.Write([]byte("x")); err != nil {
		t.Fatalf("pw.Write() = %v", err)
	}

	handle, err := NewFDHandle(pr)
	if err != nil {
		t.Fatalf("NewFDHandle() = %v", err)
	}

	r := New(WithLogger(NewNopLogger()))

	invocations := 0
	var id WatcherID
	id = r.OnReadable(handle, func(r *Reactor, got WatcherID, stream StreamHandle) {
		invocations++
		buf := make([]byte, 1)
		n, err := pr.Read(buf)
		if err != nil && err != io.EOF {
			t.Errorf("pr.Read() = %v", err)
		}
		if n != 1 || buf[0] != 'x' {
			t.Errorf("read %q (n=%d), want \"x\"", buf[:n], n)
		}
		r.Cancel(id)
	}, true)

	if err := r.Run(nil); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if invocations != 1 {
		t.Fatalf("invocations = %d, want 1", invocations)
	}
	if r.Running() {
		t.Fatal("reactor should idle-stop once the only watcher is cancelled")
	}
}

// TestDispatchIO_ReadablesBeforeWritables covers ordering guarantee 1
// (§5): within one iteration, all readables fire before any writable.
func TestDispatchIO_ReadablesBeforeWritables(t *testing.T) {
	clock := &fakeClock{now: 1}
	mux := &fakeMultiplexer{}
	r := New(WithClock(clock), WithMultiplexer(mux), WithLogger(NewNopLogger()))

	readStream := fakeStream{key: 1}
	writeStream := fakeStream{key: 2}

	var order []string
	r.OnWritable(writeStream, func(*Reactor, WatcherID, StreamHandle) {
		order = append(order, "write")
	}, true)
	r.OnReadable(readStream, func(*Reactor, WatcherID, StreamHandle) {
		order = append(order, "read")
	}, true)

	mux.readyRead = []StreamHandle{readStream}
	mux.readyWrite = []StreamHandle{writeStream}

	if err := r.Tick(); err != nil {
		t.Fatalf("Tick() = %v, want nil", err)
	}
	if len(order) != 2 || order[0] != "read" || order[1] != "write" {
		t.Fatalf("dispatch order = %v, want [read write]", order)
	}
}

// TestDispatchIO_CancelSkipsLaterCallbackOnSameStream covers §4.4: a
// callback that cancels a later watcher on the same stream's bucket
// causes that watcher to be skipped in the same dispatch.
func TestDispatchIO_CancelSkipsLaterCallbackOnSameStream(t *testing.T) {
	clock := &fakeClock{now: 1}
	mux := &fakeMultiplexer{}
	r := New(WithClock(clock), WithMultiplexer(mux), WithLogger(NewNopLogger()))

	stream := fakeStream{key: 1}
	var secondRan bool
	var secondID WatcherID

	r.OnReadable(stream, func(r *Reactor, id WatcherID, _ StreamHandle) {
		r.Cancel(secondID)
	}, true)
	secondID = r.OnReadable(stream, func(*Reactor, WatcherID, StreamHandle) {
		secondRan = true
	}, true)

	mux.readyRead = []StreamHandle{stream}

	if err := r.Tick(); err != nil {
		t.Fatalf("Tick() = %v, want nil", err)
	}
	if secondRan {
		t.Fatal("a watcher cancelled by an earlier callback in the same bucket must not fire")
	}
}

// TestDispatchIO_IdleTerminationWithNoTimersOrIO covers the Multiplexer
// not being invoked at all once I/O interest and timers are both empty.
func TestDispatchIO_IdleTerminationWithNoTimersOrIO(t *testing.T) {
	clock := &fakeClock{now: 1}
	mux := &fakeMultiplexer{}
	r := New(WithClock(clock), WithMultiplexer(mux), WithLogger(NewNopLogger()))

	if err := r.Run(nil); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if mux.calls != 0 {
		t.Fatalf("Multiplexer.Select called %d times, want 0", mux.calls)
	}
}
