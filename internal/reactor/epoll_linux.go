//go:build linux

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// EpollPoller implements Poller over Linux epoll.
type EpollPoller struct {
	epfd int
}

// NewEpollPoller creates a new epoll instance.
func NewEpollPoller() (*EpollPoller, error) {
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &EpollPoller{epfd: fd}, nil
}

func (p *EpollPoller) Add(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *EpollPoller) Remove(fd int) error {
	// Linux ignores the event argument on EPOLL_CTL_DEL, but old kernels
	// require a non-nil pointer.
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, &unix.EpollEvent{})
}

func (p *EpollPoller) Wait(timeout time.Duration) ([]Event, error) {
	raw := make([]unix.EpollEvent, 64)
	ms := int(timeout / time.Millisecond)
	n, err := unix.EpollWait(p.epfd, raw, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		e := raw[i]
		events = append(events, Event{
			FD:       int(e.Fd),
			Readable: e.Events&(unix.EPOLLIN|unix.EPOLLHUP) != 0,
			Err:      e.Events&unix.EPOLLERR != 0,
		})
	}
	return events, nil
}

func (p *EpollPoller) Close() error {
	return unix.Close(p.epfd)
}

// NewSelfPipe opens a non-blocking pipe used to wake the reactor from a
// signal handler without any process-global state.
func NewSelfPipe() (readFD, writeFD int, err error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK); err != nil {
		return 0, 0, err
	}
	return fds[0], fds[1], nil
}

// WakeSelfPipe writes one byte to wake a poller blocked on readFD's peer.
func WakeSelfPipe(writeFD int) {
	unix.Write(writeFD, []byte{0})
}

// DrainSelfPipe empties the pipe after a wakeup so future epoll_wait
// calls don't immediately return again.
func DrainSelfPipe(readFD int) {
	var buf [64]byte
	for {
		n, err := unix.Read(readFD, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}
