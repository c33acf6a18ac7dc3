//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// SelectMultiplexer is the default [Multiplexer] on unix platforms,
// backed directly by the select(2) syscall via golang.org/x/sys/unix,
// grounded on the teacher's use of golang.org/x/sys/unix throughout
// loop.go and poller_linux.go, and on dreamans-evnio's raw-fd poller
// split (poller/epoll_linux.go vs poller/kqueue_unix.go) for the general
// pattern of a platform-specific file backing a shared interface.
//
// select(2) scales poorly past a few hundred descriptors and is chosen
// here for fidelity to spec.md §6's literal "select(readSet, writeSet,
// timeout) → readySets" contract, not for production throughput; a host
// application with many streams should supply its own epoll/kqueue-backed
// [Multiplexer] via [WithMultiplexer].
type SelectMultiplexer struct{}

// NewSelectMultiplexer constructs the default unix [Multiplexer].
func NewSelectMultiplexer() *SelectMultiplexer { return &SelectMultiplexer{} }

// fdBitsPerWord matches the word size backing unix.FdSet.Bits on every
// unix platform golang.org/x/sys/unix supports (int64 words); the package
// itself doesn't expose Set/IsSet helpers the way some libc bindings do.
const fdBitsPerWord = 64

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/fdBitsPerWord] |= 1 << (uint(fd) % fdBitsPerWord)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/fdBitsPerWord]&(1<<(uint(fd)%fdBitsPerWord)) != 0
}

func (m *SelectMultiplexer) Select(readSet, writeSet map[int]StreamHandle, timeout time.Duration) (readyRead, readyWrite []StreamHandle, err error) {
	var rfds, wfds unix.FdSet
	maxFD := -1

	for fd := range readSet {
		fdSet(&rfds, fd)
		if fd > maxFD {
			maxFD = fd
		}
	}
	for fd := range writeSet {
		fdSet(&wfds, fd)
		if fd > maxFD {
			maxFD = fd
		}
	}

	if maxFD < 0 {
		// Nothing to watch; select(2) with all-nil sets would block
		// forever on some platforms, so honor the timeout with a sleep
		// instead of calling into the syscall at all.
		if timeout > 0 {
			time.Sleep(timeout)
		}
		return nil, nil, nil
	}

	tv := unix.NsecToTimeval(timeout.Nanoseconds())

	n, err := unix.Select(maxFD+1, &rfds, &wfds, nil, &tv)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if n == 0 {
		return nil, nil, nil
	}

	for fd, h := range readSet {
		if fdIsSet(&rfds, fd) {
			readyRead = append(readyRead, h)
		}
	}
	for fd, h := range writeSet {
		if fdIsSet(&wfds, fd) {
			readyWrite = append(readyWrite, h)
		}
	}
	return readyRead, readyWrite, nil
}

var _ Multiplexer = (*SelectMultiplexer)(nil)

func defaultMultiplexer() Multiplexer { return NewSelectMultiplexer() }
