package tun

import (
	"errors"
	"syscall"

	"github.com/teavpn2/server/internal/logging"
)

// Plane wraps a Device with the non-blocking read_one/write_one contract
// the reactor expects: a single read yields one datagram or reports
// "nothing ready" without blocking; a single write is best-effort.
type Plane struct {
	dev *Device
	log logging.Logger
	buf []byte
}

// NewPlane wraps dev. buf is the scratch buffer read_one decodes into;
// it must be at least mtu bytes and is reused across calls, so callers
// must copy out anything they need to retain.
func NewPlane(dev *Device, mtu int, log logging.Logger) *Plane {
	return &Plane{dev: dev, log: log, buf: make([]byte, mtu)}
}

// ReadOne returns the next datagram, or ok=false if none is ready yet.
// A non-EAGAIN error is fatal to the plane and should stop the reactor.
func (p *Plane) ReadOne() (datagram []byte, ok bool, err error) {
	n, err := p.dev.Read(p.buf)
	if err != nil {
		if errors.Is(err, syscall.EAGAIN) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return p.buf[:n], true, nil
}

// WriteOne writes one datagram. Failures are not fatal to the plane;
// the caller decides whether to log and continue.
func (p *Plane) WriteOne(datagram []byte) error {
	_, err := p.dev.Write(datagram)
	return err
}

func (p *Plane) FD() int { return p.dev.FD() }

func (p *Plane) Close() error { return p.dev.Close() }
