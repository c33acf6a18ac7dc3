package reactor

import "time"

// fakeClock is a deterministic [Clock] for tests; time only advances when
// the test calls Advance or when fakeSleeper.Sleep runs against it.
type fakeClock struct {
	now float64
}

func (c *fakeClock) Now() float64 { return c.now }

func (c *fakeClock) Advance(d float64) { c.now += d }

// fakeSleeper advances a fakeClock by the requested duration instead of
// actually blocking, and records every call for assertions.
type fakeSleeper struct {
	clock *fakeClock
	calls []time.Duration
}

func (s *fakeSleeper) Sleep(d time.Duration) {
	s.calls = append(s.calls, d)
	s.clock.Advance(d.Seconds())
}

// fakeMultiplexer is a controllable [Multiplexer] for deterministic I/O
// dispatch tests. readyRead/readyWrite are consulted once per Select call
// and then cleared, so a test can arm the next tick's readiness and let
// the reactor drain it exactly once.
type fakeMultiplexer struct {
	readyRead  []StreamHandle
	readyWrite []StreamHandle
	calls      int
}

func (m *fakeMultiplexer) Select(readSet, writeSet map[int]StreamHandle, timeout time.Duration) (readyRead, readyWrite []StreamHandle, err error) {
	m.calls++
	rr, rw := m.readyRead, m.readyWrite
	m.readyRead, m.readyWrite = nil, nil
	return rr, rw, nil
}

// fakeStream is a minimal [StreamHandle] for tests that don't need a real
// file descriptor.
type fakeStream struct {
	key int
}

func (f fakeStream) Key() int { return f.key }
