// Package wire implements the TeaVPN2 client/server packet framing: a
// fixed 4-byte header followed by a variable-length payload, and the
// sliding-buffer decoder that turns a TCP byte stream into a sequence
// of frames.
package wire

import "encoding/binary"

// HeaderSize is the size in bytes of a packet header: type, pad, length.
const HeaderSize = 4

// PayloadMax is the largest payload a single frame may carry.
const PayloadMax = 4096

// ClientType identifies the kind of packet a client sends.
type ClientType uint8

//go:generate stringer -type=ClientType,ServerType -linecomment -output stringers.go .

// Client packet types.
const (
	ClientHello     ClientType = 0 // HELLO
	ClientAuth      ClientType = 1 // AUTH
	ClientIfaceAck  ClientType = 2 // IFACE_ACK
	ClientIfaceFail ClientType = 3 // IFACE_FAIL
	ClientIfaceData ClientType = 4 // IFACE_DATA
	ClientReqSync   ClientType = 5 // REQSYNC
	ClientClose     ClientType = 6 // CLOSE
)

// ServerType identifies the kind of packet the server sends.
type ServerType uint8

// Server packet types.
const (
	ServerBanner     ServerType = 0 // BANNER
	ServerAuthOK     ServerType = 1 // AUTH_OK
	ServerAuthReject ServerType = 2 // AUTH_REJECT
	ServerData       ServerType = 3 // DATA
	ServerClose      ServerType = 4 // CLOSE
)

// UsernameSize and PasswordSize bound the AUTH payload's two fixed-width
// NUL-terminated text fields.
const (
	UsernameSize = 64
	PasswordSize = 64
)

// Frame is a view over a byte slice holding one decoded packet. It never
// copies or reinterprets the underlying bytes as a different type; every
// field is read through an accessor backed by encoding/binary.
type Frame struct {
	buf []byte // buf[0] is the type byte, buf[4:] is the payload.
}

// NewFrame wraps buf as a Frame. buf must be at least HeaderSize bytes
// and len(buf) == HeaderSize+Length().
func NewFrame(buf []byte) Frame {
	return Frame{buf: buf}
}

func (f Frame) RawData() []byte { return f.buf }

func (f Frame) ClientType() ClientType { return ClientType(f.buf[0]) }
func (f Frame) ServerType() ServerType { return ServerType(f.buf[0]) }

func (f Frame) SetClientType(t ClientType) { f.buf[0] = byte(t) }
func (f Frame) SetServerType(t ServerType) { f.buf[0] = byte(t) }

func (f Frame) Length() uint16 {
	return binary.BigEndian.Uint16(f.buf[2:4])
}

func (f Frame) SetLength(n uint16) {
	binary.BigEndian.PutUint16(f.buf[2:4], n)
}

// Payload returns the payload section of the frame. Callers must not
// retain it past the lifetime of the client's receive buffer.
func (f Frame) Payload() []byte {
	return f.buf[HeaderSize : HeaderSize+int(f.Length())]
}

// Encode writes a complete frame (header + payload) into dst, which must
// be at least HeaderSize+len(payload) bytes, and returns the number of
// bytes written.
func Encode(dst []byte, typ uint8, payload []byte) int {
	dst[0] = typ
	dst[1] = 0
	binary.BigEndian.PutUint16(dst[2:4], uint16(len(payload)))
	copy(dst[HeaderSize:], payload)
	return HeaderSize + len(payload)
}

// BannerPayload is the fixed 9-byte payload of a BANNER frame: three
// {major,minor,patch} version triples (current, min-compatible,
// max-compatible).
type BannerPayload [9]byte

// CurrentVersion is hard-coded across all three triples; the source this
// spec is drawn from never implements version negotiation.
var CurrentVersion = [3]byte{0, 0, 1}

// EncodeBanner fills a BannerPayload with CurrentVersion repeated three times.
func EncodeBanner() BannerPayload {
	var b BannerPayload
	copy(b[0:3], CurrentVersion[:])
	copy(b[3:6], CurrentVersion[:])
	copy(b[6:9], CurrentVersion[:])
	return b
}

// IfaceConfigSize is the encoded size of an IfaceConfigPayload.
const IfaceConfigSize = 16 + 16 + 16 + 2

// IfaceConfigPayload carries the interface assignment the server hands
// back on successful authentication.
type IfaceConfigPayload struct {
	Dev     [16]byte
	IPv4    [16]byte
	Netmask [16]byte
	MTU     uint16
}

func putCString(dst []byte, s string) {
	n := copy(dst, s)
	if n < len(dst) {
		dst[n] = 0
	}
}

func getCString(src []byte) string {
	for i, b := range src {
		if b == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}

// Encode writes the payload in wire order: dev, ipv4, netmask, mtu (big endian).
func (p IfaceConfigPayload) Encode(dst []byte) {
	copy(dst[0:16], p.Dev[:])
	copy(dst[16:32], p.IPv4[:])
	copy(dst[32:48], p.Netmask[:])
	binary.BigEndian.PutUint16(dst[48:50], p.MTU)
}

// DecodeIfaceConfig parses a 50-byte payload produced by Encode.
func DecodeIfaceConfig(src []byte) (p IfaceConfigPayload) {
	copy(p.Dev[:], src[0:16])
	copy(p.IPv4[:], src[16:32])
	copy(p.Netmask[:], src[32:48])
	p.MTU = binary.BigEndian.Uint16(src[48:50])
	return p
}

// NewIfaceConfigPayload builds a payload from plain strings, truncating
// each field to its fixed width; a NUL follows the text only when it is
// shorter than the field.
func NewIfaceConfigPayload(dev, ipv4, netmask string, mtu uint16) IfaceConfigPayload {
	var p IfaceConfigPayload
	putCString(p.Dev[:], dev)
	putCString(p.IPv4[:], ipv4)
	putCString(p.Netmask[:], netmask)
	p.MTU = mtu
	return p
}

func (p IfaceConfigPayload) DevString() string     { return getCString(p.Dev[:]) }
func (p IfaceConfigPayload) IPv4String() string    { return getCString(p.IPv4[:]) }
func (p IfaceConfigPayload) NetmaskString() string { return getCString(p.Netmask[:]) }

// AuthPayload is the fixed-width username/password pair sent in an AUTH frame.
type AuthPayload struct {
	Username [UsernameSize]byte
	Password [PasswordSize]byte
}

func (p AuthPayload) UsernameString() string { return getCString(p.Username[:]) }
func (p AuthPayload) PasswordString() string { return getCString(p.Password[:]) }

// DecodeAuth parses a UsernameSize+PasswordSize byte payload.
func DecodeAuth(src []byte) (p AuthPayload) {
	copy(p.Username[:], src[0:UsernameSize])
	copy(p.Password[:], src[UsernameSize:UsernameSize+PasswordSize])
	return p
}

// NewAuthPayload builds an AuthPayload from plain strings.
func NewAuthPayload(username, password string) AuthPayload {
	var p AuthPayload
	putCString(p.Username[:], username)
	putCString(p.Password[:], password)
	return p
}

func (p AuthPayload) Encode(dst []byte) {
	copy(dst[0:UsernameSize], p.Username[:])
	copy(dst[UsernameSize:UsernameSize+PasswordSize], p.Password[:])
}

// AuthPayloadSize is the encoded size of AuthPayload.
const AuthPayloadSize = UsernameSize + PasswordSize
