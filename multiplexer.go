package reactor

import (
	"fmt"
	"syscall"
	"time"
)

// StreamHandle is an opaque byte stream, identified by a stable integer
// key (spec.md §6) — typically the underlying OS file descriptor.
type StreamHandle interface {
	// Key returns a stable integer identity for this stream, used to
	// index read/write interest buckets.
	Key() int
}

// Multiplexer delegates readiness polling to an external primitive with
// the level-triggered select(readSet, writeSet, timeout) → readySets
// contract of spec.md §6. It is treated as an abstract collaborator: the
// reactor core never assumes anything about its implementation beyond
// this contract.
type Multiplexer interface {
	// Select blocks for up to timeout waiting for any handle in readSet
	// or writeSet to become ready, then returns the ready subsets. A
	// timeout of zero must not block. Select returns empty slices (not
	// an error) when the timeout elapses with nothing ready.
	Select(readSet, writeSet map[int]StreamHandle, timeout time.Duration) (readyRead, readyWrite []StreamHandle, err error)
}

// FDHandle adapts any object exposing SyscallConn (e.g. *os.File,
// *net.TCPConn, *os.Pipe ends) into a [StreamHandle], extracting its raw
// file descriptor as the stable key. This is the concrete adapter named
// in SPEC_FULL.md's domain stack, grounded on the teacher's
// fd_unix.go/fd_windows.go split and on dreamans-evnio's raw-fd poller
// contracts.
type FDHandle struct {
	conn syscall.Conn
	fd   int
}

// NewFDHandle resolves and caches the raw file descriptor of conn (e.g. a
// *net.TCPConn or an *os.File such as one end of an os.Pipe). The fd is
// read once at construction time; callers must not use FDHandle across a
// Dup/close/reopen of the underlying descriptor.
func NewFDHandle(conn syscall.Conn) (*FDHandle, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("reactor: resolving syscall conn: %w", err)
	}
	var fd int
	if err := raw.Control(func(descriptor uintptr) {
		fd = int(descriptor)
	}); err != nil {
		return nil, fmt.Errorf("reactor: reading fd: %w", err)
	}
	return &FDHandle{conn: conn, fd: fd}, nil
}

// Key returns the cached file descriptor.
func (h *FDHandle) Key() int { return h.fd }

var _ StreamHandle = (*FDHandle)(nil)
