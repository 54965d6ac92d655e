package reactor

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// fakePoller lets tests drive the Reactor's dispatch loop deterministically:
// the test decides exactly which fds become ready between calls to Wait,
// instead of relying on a real kernel readiness mechanism.
type fakePoller struct {
	mu        sync.Mutex
	watched   map[int]bool
	queued    []Event
}

func newFakePoller() *fakePoller {
	return &fakePoller{watched: make(map[int]bool)}
}

func (p *fakePoller) Add(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watched[fd] = true
	return nil
}

func (p *fakePoller) Remove(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.watched, fd)
	return nil
}

// Ready queues fd as readable (or erroring) for the next Wait call.
func (p *fakePoller) Ready(fd int, readable, errFlag bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queued = append(p.queued, Event{FD: fd, Readable: readable, Err: errFlag})
}

// Wait returns whatever events were queued by Ready since the last call
// and clears the queue; it never blocks, matching the Poller contract
// with timeout=0 semantics for deterministic tests.
func (p *fakePoller) Wait(_ time.Duration) ([]Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	events := p.queued
	p.queued = nil
	return events, nil
}

func (p *fakePoller) Close() error { return nil }

// fakeConn is an in-memory stand-in for a client's TCP socket.
type fakeConn struct {
	fd       int
	remote   string
	mu       sync.Mutex
	inbound  bytes.Buffer
	outbound bytes.Buffer
	closed   bool
	peerDone bool
}

func newFakeConn(fd int, remote string) *fakeConn {
	return &fakeConn{fd: fd, remote: remote}
}

func (c *fakeConn) FD() int                  { return c.fd }
func (c *fakeConn) RemoteAddrString() string { return c.remote }

// Feed appends bytes as if the peer had sent them.
func (c *fakeConn) Feed(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbound.Write(b)
}

// ClosePeer marks the remote side as having closed the connection; once
// the buffered inbound bytes are consumed, every Read returns the
// io.EOF-equivalent (0, nil).
func (c *fakeConn) ClosePeer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peerDone = true
}

// Sent returns everything written to this conn so far without clearing it.
func (c *fakeConn) Sent() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.outbound.Bytes()...)
}

// Drain returns everything written to this conn so far and clears the
// buffer, so the next Drain/Sent call only sees subsequent writes.
func (c *fakeConn) Drain() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := append([]byte(nil), c.outbound.Bytes()...)
	c.outbound.Reset()
	return b
}

func (c *fakeConn) Read(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inbound.Len() == 0 {
		if c.peerDone {
			return 0, nil
		}
		return 0, ErrWouldBlock
	}
	return c.inbound.Read(b)
}

func (c *fakeConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, errors.New("fakeConn: write after close")
	}
	return c.outbound.Write(b)
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// fakeListener hands out queued fakeConns on Accept.
type fakeListener struct {
	fd      int
	mu      sync.Mutex
	pending []*fakeConn
	closed  bool
}

func newFakeListener(fd int) *fakeListener {
	return &fakeListener{fd: fd}
}

func (l *fakeListener) FD() int { return l.fd }

// Enqueue schedules conn to be returned by the next Accept call.
func (l *fakeListener) Enqueue(conn *fakeConn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, conn)
}

func (l *fakeListener) Accept() (Conn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil, ErrWouldBlock
	}
	c := l.pending[0]
	l.pending = l.pending[1:]
	return c, nil
}

func (l *fakeListener) Close() error {
	l.closed = true
	return nil
}

// fakeTUN is an in-memory stand-in for the TUN plane.
type fakeTUN struct {
	fd      int
	mu      sync.Mutex
	pending [][]byte
	written [][]byte
}

func newFakeTUN(fd int) *fakeTUN { return &fakeTUN{fd: fd} }

func (t *fakeTUN) FD() int { return t.fd }

// Inject queues a datagram as if it arrived from the kernel.
func (t *fakeTUN) Inject(datagram []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, append([]byte(nil), datagram...))
}

func (t *fakeTUN) ReadOne() ([]byte, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		return nil, false, nil
	}
	d := t.pending[0]
	t.pending = t.pending[1:]
	return d, true, nil
}

func (t *fakeTUN) WriteOne(datagram []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.written = append(t.written, append([]byte(nil), datagram...))
	return nil
}

func (t *fakeTUN) Written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.written...)
}
