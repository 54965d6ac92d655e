package client

import "github.com/teavpn2/server/internal/wire"

// Authenticator is the narrow view of the Auth Adapter the state machine
// needs: given credentials, either an interface assignment or a refusal.
type Authenticator interface {
	Authenticate(username, password string) (assigned wire.IfaceConfigPayload, ok bool)
}

// Response is the single outbound frame (if any) a transition produces.
type Response struct {
	Type    wire.ServerType
	Payload []byte
}

// Result is everything a processed inbound frame may trigger: at most
// one response frame, at most one payload to forward onto the TUN
// device, and whether the connection must now be closed.
type Result struct {
	Response   *Response
	TUNPayload []byte
	Disconnect bool
}

// HandleFrame advances the state machine by exactly one inbound frame.
// It never blocks; Authenticate is expected to return quickly (the
// file-backed adapter looks up an in-memory map, the sqlite-backed one
// queries a local database).
func (r *Record) HandleFrame(frame wire.Frame, auth Authenticator) Result {
	switch frame.ClientType() {
	case wire.ClientHello:
		return r.onHello()
	case wire.ClientAuth:
		return r.onAuth(frame, auth)
	case wire.ClientIfaceData:
		return r.onIfaceData(frame)
	case wire.ClientClose:
		return Result{Disconnect: true}
	default:
		// REQSYNC, IFACE_ACK, IFACE_FAIL: defined for wire compatibility,
		// unhandled by this state machine. Authenticated peers are given
		// the benefit of the doubt; anyone else is dropped.
		if r.State == StateAuthenticated {
			return Result{}
		}
		return Result{Disconnect: true}
	}
}

func (r *Record) onHello() Result {
	switch r.State {
	case StateNew:
		banner := wire.EncodeBanner()
		r.State = StateEstablished
		return Result{Response: &Response{Type: wire.ServerBanner, Payload: banner[:]}}
	case StateEstablished, StateAuthenticated:
		return Result{}
	default:
		return Result{Disconnect: true}
	}
}

func (r *Record) onAuth(frame wire.Frame, auth Authenticator) Result {
	switch r.State {
	case StateEstablished:
		if frame.Length() != wire.AuthPayloadSize {
			return r.protocolError()
		}
		payload := wire.DecodeAuth(frame.Payload())
		iface, ok := auth.Authenticate(payload.UsernameString(), payload.PasswordString())
		if !ok {
			return Result{
				Response:   &Response{Type: wire.ServerAuthReject},
				Disconnect: true,
			}
		}
		r.Username = payload.UsernameString()
		r.State = StateAuthenticated
		buf := make([]byte, wire.IfaceConfigSize)
		iface.Encode(buf)
		return Result{Response: &Response{Type: wire.ServerAuthOK, Payload: buf}}
	case StateAuthenticated:
		return Result{} // idempotent
	default:
		return Result{Disconnect: true}
	}
}

func (r *Record) onIfaceData(frame wire.Frame) Result {
	if r.State != StateAuthenticated {
		return Result{Disconnect: true}
	}
	return Result{TUNPayload: frame.Payload()}
}

// protocolError charges the error budget for a well-formed-but-invalid
// frame and forces disconnect once the budget is exhausted.
func (r *Record) protocolError() Result {
	if r.ChargeError() {
		return Result{Disconnect: true}
	}
	return Result{}
}
