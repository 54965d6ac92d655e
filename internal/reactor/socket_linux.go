//go:build linux

package reactor

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// rawListener is a non-blocking AF_INET/SOCK_STREAM listener built
// directly on syscalls, following the raw-socket style the teacher
// library uses for its AF_PACKET Bridge (internal/tap.go), adapted here
// to a plain TCP listening socket with SO_REUSEADDR.
type rawListener struct {
	fd int
}

// Listen binds and listens on addr:port with the given backlog.
func Listen(addr string, port uint16, backlog int) (*rawListener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("reactor: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactor: SO_REUSEADDR: %w", err)
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactor: invalid bind address %q", addr)
	}
	var sa unix.SockaddrInet4
	copy(sa.Addr[:], ip.To4())
	sa.Port = int(port)
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactor: bind %s:%d: %w", addr, port, err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactor: listen: %w", err)
	}
	return &rawListener{fd: fd}, nil
}

func (l *rawListener) FD() int { return l.fd }

// Accept returns one pending connection, or ErrWouldBlock if none is
// pending. TCP_NODELAY is set on every accepted socket to avoid Nagle
// delay on the small, latency-sensitive control/data frames.
func (l *rawListener) Accept() (Conn, error) {
	nfd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK)
	if err != nil {
		if err == unix.EAGAIN {
			return nil, ErrWouldBlock
		}
		return nil, err
	}
	unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return &rawConn{fd: nfd, remote: remoteAddrString(sa)}, nil
}

func (l *rawListener) Close() error { return unix.Close(l.fd) }

func remoteAddrString(sa unix.Sockaddr) string {
	if v4, ok := sa.(*unix.SockaddrInet4); ok {
		ip := net.IP(v4.Addr[:])
		return fmt.Sprintf("%s:%d", ip.String(), v4.Port)
	}
	return "unknown"
}

// rawConn wraps an accepted, non-blocking client socket.
type rawConn struct {
	fd     int
	remote string
}

func (c *rawConn) FD() int                  { return c.fd }
func (c *rawConn) RemoteAddrString() string { return c.remote }

func (c *rawConn) Read(b []byte) (int, error) {
	n, err := unix.Read(c.fd, b)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

func (c *rawConn) Write(b []byte) (int, error) {
	return unix.Write(c.fd, b)
}

func (c *rawConn) Close() error {
	return unix.Close(c.fd)
}
