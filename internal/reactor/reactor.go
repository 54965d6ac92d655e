package reactor

import (
	"log/slog"
	"time"

	"github.com/teavpn2/server/internal/client"
	"github.com/teavpn2/server/internal/logging"
	"github.com/teavpn2/server/internal/metrics"
	"github.com/teavpn2/server/internal/slot"
	"github.com/teavpn2/server/internal/wire"
)

// PollTimeout is how long a single Wait call may block with nothing
// ready. Five seconds bounds how long a shutdown signal can wait before
// the reactor notices it, while keeping the loop mostly idle.
const PollTimeout = 5 * time.Second

// TUNPlane is the narrow view of the TUN device the reactor drives.
type TUNPlane interface {
	ReadOne() (datagram []byte, ok bool, err error)
	WriteOne(datagram []byte) error
	FD() int
}

// Reactor is the single-threaded event loop multiplexing the listener,
// the TUN plane, a self-pipe, and every client socket. Its fixed
// poll-set layout conceptually matches [listen, tun, self_pipe_read,
// client_0 ... client_{max_conn-1}]; fds are tracked in maps here
// rather than a literal array slot because the epoll readiness model
// already gives O(1) dispatch without needing contiguous indices.
type Reactor struct {
	listener     Listener
	tun          TUNPlane
	poller       Poller
	selfPipeRead int
	drainSelf    func(readFD int)

	clients    []*client.Record
	conns      []Conn
	fdToSlot   map[int]uint16
	freeStack  *slot.Stack
	authorizer client.Authenticator

	metrics *metrics.Registry
	log     logging.Logger

	stop bool
}

// Config bundles the constructor arguments.
type Config struct {
	Listener     Listener
	TUN          TUNPlane
	Poller       Poller
	SelfPipeRead int
	DrainSelf    func(readFD int) // optional; nil on platforms/tests without a real pipe
	MaxConn      int
	Authorizer   client.Authenticator
	Metrics      *metrics.Registry
	Log          logging.Logger
}

// New allocates the client pool and registers the listener, TUN, and
// self-pipe fds with the poller.
func New(cfg Config) (*Reactor, error) {
	r := &Reactor{
		listener:     cfg.Listener,
		tun:          cfg.TUN,
		poller:       cfg.Poller,
		selfPipeRead: cfg.SelfPipeRead,
		drainSelf:    cfg.DrainSelf,
		clients:      make([]*client.Record, cfg.MaxConn),
		conns:        make([]Conn, cfg.MaxConn),
		fdToSlot:     make(map[int]uint16, cfg.MaxConn),
		freeStack:    slot.New(cfg.MaxConn),
		authorizer:   cfg.Authorizer,
		metrics:      cfg.Metrics,
		log:          cfg.Log,
	}
	for i := range r.clients {
		r.clients[i] = client.NewRecord(uint16(i))
	}
	if err := r.poller.Add(r.listener.FD()); err != nil {
		return nil, err
	}
	if err := r.poller.Add(r.tun.FD()); err != nil {
		return nil, err
	}
	if r.selfPipeRead != 0 {
		if err := r.poller.Add(r.selfPipeRead); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Stop requests the loop to exit after the current dispatch pass.
func (r *Reactor) Stop() { r.stop = true }

// Stopped reports whether Stop was called (exported for tests/lifecycle).
func (r *Reactor) Stopped() bool { return r.stop }

// Run polls and dispatches events until Stop is called or a fatal error
// (TUN I/O failure, poller failure) occurs. Before returning it closes
// every still-open client connection.
func (r *Reactor) Run() error {
	defer func() {
		for idx, conn := range r.conns {
			if conn != nil {
				r.closeClient(uint16(idx))
			}
		}
	}()
	for !r.stop {
		if err := r.RunOnce(PollTimeout); err != nil {
			return err
		}
	}
	return nil
}

// RunOnce performs exactly one Wait+dispatch pass; exported so tests can
// drive the reactor deterministically without a timed loop.
func (r *Reactor) RunOnce(timeout time.Duration) error {
	events, err := r.poller.Wait(timeout)
	if err != nil {
		return err
	}
	return r.dispatch(events)
}

func (r *Reactor) dispatch(events []Event) error {
	for _, e := range events {
		switch {
		case e.FD == r.listener.FD():
			r.acceptLoop()
		case e.FD == r.tun.FD():
			if e.Readable {
				if err := r.handleTUN(); err != nil {
					r.stop = true
					return err
				}
			}
		case e.FD == r.selfPipeRead:
			if r.drainSelf != nil {
				r.drainSelf(r.selfPipeRead)
			}
			r.stop = true
		default:
			r.handleClientEvent(e)
		}
	}
	return nil
}

// acceptLoop accepts every pending connection, following the source's
// "accept until WOULD_BLOCK" convention.
func (r *Reactor) acceptLoop() {
	for {
		conn, err := r.listener.Accept()
		if err == ErrWouldBlock {
			return
		}
		if err != nil {
			r.log.Warn("accept failed", slog.String("err", err.Error()))
			return
		}
		idx, err := r.freeStack.Pop()
		if err != nil {
			r.log.Warn("slot pool exhausted, rejecting connection",
				slog.String("remote", conn.RemoteAddrString()))
			conn.Close()
			continue
		}
		if err := r.poller.Add(conn.FD()); err != nil {
			r.log.Error("failed to register client fd", slog.String("err", err.Error()))
			conn.Close()
			r.freeStack.Push(idx)
			continue
		}
		r.clients[idx].Acquire(conn.FD(), conn.RemoteAddrString())
		r.conns[idx] = conn
		r.fdToSlot[conn.FD()] = idx
		if r.metrics != nil {
			r.metrics.SetOnline(r.onlineCount())
		}
		r.log.Info("client accepted",
			slog.Int("slot", int(idx)),
			slog.String("remote", conn.RemoteAddrString()))
	}
}

func (r *Reactor) onlineCount() int {
	return r.freeStack.Cap() - r.freeStack.Len()
}

// handleClientEvent processes one readiness notification for a client socket.
func (r *Reactor) handleClientEvent(e Event) {
	idx, ok := r.fdToSlot[e.FD]
	if !ok {
		return
	}
	if e.Err {
		r.closeClient(idx)
		return
	}
	record := r.clients[idx]
	conn := r.conns[idx]

	n, err := conn.Read(record.Decoder.Free())
	if err == ErrWouldBlock {
		return
	}
	if err != nil {
		r.closeClient(idx)
		return
	}
	if n == 0 {
		r.closeClient(idx)
		return
	}
	record.Decoder.Advance(n)
	record.RecvCount++

	for {
		frame, ok, err := record.Decoder.Next()
		if err != nil {
			// Corrupt length: charge the budget; the buffer was
			// already reset by the decoder itself.
			if record.ChargeError() {
				r.closeClient(idx)
				return
			}
			if r.metrics != nil {
				r.metrics.IncClientError()
			}
			return
		}
		if !ok {
			return
		}
		result := record.HandleFrame(frame, r.authorizer)
		if result.Response != nil {
			buf := record.SendBuf()
			n := wire.Encode(buf, byte(result.Response.Type), result.Response.Payload)
			if _, werr := conn.Write(buf[:n]); werr != nil {
				if record.ChargeError() {
					r.closeClient(idx)
					return
				}
			} else if result.Response.Type == wire.ServerAuthOK && r.metrics != nil {
				r.metrics.IncAssigned()
			}
		}
		if result.TUNPayload != nil {
			if err := r.tun.WriteOne(result.TUNPayload); err != nil {
				r.log.Warn("tun write failed", slog.String("err", err.Error()))
			} else if r.metrics != nil {
				r.metrics.AddTUNWritten(len(result.TUNPayload))
			}
		}
		if result.Disconnect {
			r.closeClient(idx)
			return
		}
	}
}

// handleTUN reads one datagram and broadcasts it to every authenticated client.
func (r *Reactor) handleTUN() error {
	datagram, ok, err := r.tun.ReadOne()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if r.metrics != nil {
		r.metrics.AddTUNRead(len(datagram))
	}
	r.broadcast(datagram)
	return nil
}

// broadcast replicates datagram to every AUTHENTICATED client in slot
// order; a send failure to one recipient does not stop delivery to others.
func (r *Reactor) broadcast(datagram []byte) {
	for idx, rec := range r.clients {
		if !rec.InUse || rec.State != client.StateAuthenticated {
			continue
		}
		conn := r.conns[idx]
		buf := rec.SendBuf()
		n := wire.Encode(buf, byte(wire.ServerData), datagram)
		if _, err := conn.Write(buf[:n]); err != nil {
			if rec.ChargeError() {
				r.closeClient(uint16(idx))
			}
			continue
		}
		rec.SendCount++
	}
	if r.metrics != nil {
		r.metrics.IncBroadcastFrame()
	}
}

// closeClient tears a connection down in the mandated order: close the
// fd, disable its poll entry, reset the slot, then return it to the
// free stack.
func (r *Reactor) closeClient(idx uint16) {
	conn := r.conns[idx]
	if conn == nil {
		return
	}
	fd := conn.FD()
	conn.Close()
	r.poller.Remove(fd)
	delete(r.fdToSlot, fd)
	r.clients[idx].Reset()
	r.conns[idx] = nil
	r.freeStack.Push(idx)
	if r.metrics != nil {
		r.metrics.SetOnline(r.onlineCount())
	}
	r.log.Debug("client disconnected", slog.Int("slot", int(idx)))
}
