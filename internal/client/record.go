// Package client implements the per-connection Client Record, its fixed
// buffers, and the state machine that drives it from acceptance through
// authentication to teardown.
package client

import "github.com/teavpn2/server/internal/wire"

// State is a client connection's position in the handshake.
type State uint8

//go:generate stringer -type=State -linecomment -output state_string.go .

const (
	StateNew           State = iota // new
	StateEstablished                // established
	StateAuthenticated              // authenticated
	StateDisconnected                // disconnected
)

// MaxErrCount is the per-client error budget ceiling.
const MaxErrCount = 10

// Record is one slot's connection state. It owns no heap allocation
// beyond the fixed buffers created at construction time; Reset recycles
// it in place for the next connection to use this slot.
type Record struct {
	SlotIdx uint16
	FD      int // kernel socket handle; -1 when the slot is free
	InUse   bool
	State   State

	Username string
	SrcAddr  string

	ErrCount  uint8
	SendCount uint32
	RecvCount uint32

	recvBuf []byte
	Decoder *wire.Decoder

	sendBuf []byte
}

// NewRecord allocates the fixed buffers for one slot. Called once per
// slot at pool construction time, never per connection.
func NewRecord(slotIdx uint16) *Record {
	r := &Record{
		SlotIdx: slotIdx,
		FD:      -1,
		recvBuf: make([]byte, wire.HeaderSize+wire.PayloadMax),
		sendBuf: make([]byte, wire.HeaderSize+wire.PayloadMax),
	}
	r.Decoder = wire.NewDecoder(r.recvBuf)
	return r
}

// SendBuf returns the slot's fixed outbound scratch buffer.
func (r *Record) SendBuf() []byte { return r.sendBuf }

// Acquire transitions the slot from free to NEW for a newly accepted fd.
func (r *Record) Acquire(fd int, addr string) {
	r.FD = fd
	r.InUse = true
	r.State = StateNew
	r.SrcAddr = addr
	r.Username = "_"
	r.ErrCount = 0
	r.SendCount = 0
	r.RecvCount = 0
	r.Decoder.Reset()
}

// Reset clears the slot back to its free-pool state. SlotIdx and the
// buffers (recvBuf/sendBuf/Decoder) are preserved across resets since
// they are tied to the slot, not the connection.
func (r *Record) Reset() {
	r.FD = -1
	r.InUse = false
	r.State = StateDisconnected
	r.SrcAddr = ""
	r.Username = "_"
	r.ErrCount = 0
	r.SendCount = 0
	r.RecvCount = 0
	r.Decoder.Reset()
}

// ChargeError increments the error budget and reports whether the slot
// must now be disconnected.
func (r *Record) ChargeError() (mustDisconnect bool) {
	r.ErrCount++
	return r.ErrCount >= MaxErrCount
}
