//go:build linux

// Package tun owns the TUN file handle: opening /dev/net/tun in
// layer-3 (no packet info) mode and reading/writing whole IP
// datagrams. Adapted from the teacher library's TAP device code
// (internal/tap.go in the retrieval pack) by switching IFF_TAP for
// IFF_TUN, since this server bridges IP datagrams, not Ethernet frames.
package tun

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"unsafe"
)

// Device is a raw handle to a kernel TUN interface.
type Device struct {
	fd   int
	name string
}

// Open creates (or attaches to) the TUN interface named name. name must
// fit in syscall.IFNAMSIZ; the caller is responsible for bringing the
// interface up and assigning an address (see the provision package).
func Open(name string) (*Device, error) {
	if len(name) >= syscall.IFNAMSIZ {
		return nil, errors.New("tun: interface name too long")
	}
	fd, err := syscall.Open("/dev/net/tun", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("tun: open /dev/net/tun: %w", err)
	}
	ifr := makeifreq(name)
	ifr.setFlags(uint16(syscall.IFF_TUN | syscall.IFF_NO_PI))
	if err := ioctl(fd, syscall.TUNSETIFF, ifr.ptr()); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("tun: TUNSETIFF: %w", err)
	}
	// TUNSETIFF writes the name the kernel actually assigned back into ifr.
	n := 0
	for n < len(ifr.Name) && ifr.Name[n] != 0 {
		n++
	}
	return &Device{fd: fd, name: string(ifr.Name[:n])}, nil
}

// Name returns the kernel-assigned interface name (equal to the
// requested name unless the kernel substituted a pattern).
func (d *Device) Name() string { return d.name }

// Read returns one IP datagram. The kernel delivers whole packets on a
// TUN device, so a single Read always yields exactly one datagram (or
// EAGAIN in non-blocking mode).
func (d *Device) Read(b []byte) (int, error) {
	return syscall.Read(d.fd, b)
}

// Write sends one IP datagram into the kernel networking stack.
func (d *Device) Write(b []byte) (int, error) {
	return syscall.Write(d.fd, b)
}

// SetNonblock puts the handle in non-blocking mode, required before
// handing its fd to the reactor's poll set.
func (d *Device) SetNonblock(nonblocking bool) error {
	return syscall.SetNonblock(d.fd, nonblocking)
}

// FD returns the raw file descriptor for registration with the poller.
func (d *Device) FD() int { return d.fd }

func (d *Device) Close() error {
	return syscall.Close(d.fd)
}

func ioctl(fd int, request uintptr, argp unsafe.Pointer) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), request, uintptr(argp))
	if errno != 0 {
		return os.NewSyscallError("ioctl", errno)
	}
	return nil
}

type ifreq struct {
	Name [syscall.IFNAMSIZ]byte
	Data [64]byte
}

func makeifreq(name string) ifreq {
	var ifr ifreq
	copy(ifr.Name[:], name)
	return ifr
}

func (ifr *ifreq) setFlags(flags uint16) {
	*(*uint16)(unsafe.Pointer(&ifr.Data[0])) = flags
}

func (ifr *ifreq) ptr() unsafe.Pointer { return unsafe.Pointer(ifr) }
