package client

import (
	"testing"

	"github.com/teavpn2/server/internal/wire"
)

type stubAuth struct {
	ok     bool
	iface  wire.IfaceConfigPayload
	called int
}

func (s *stubAuth) Authenticate(username, password string) (wire.IfaceConfigPayload, bool) {
	s.called++
	return s.iface, s.ok
}

func frameOf(typ uint8, payload []byte) wire.Frame {
	buf := make([]byte, wire.HeaderSize+len(payload))
	wire.Encode(buf, typ, payload)
	return wire.NewFrame(buf)
}

func TestHappyPath(t *testing.T) {
	r := NewRecord(0)
	r.Acquire(3, "")

	res := r.HandleFrame(frameOf(uint8(wire.ClientHello), nil), &stubAuth{})
	if res.Response == nil || res.Response.Type != wire.ServerBanner {
		t.Fatalf("expected banner, got %+v", res)
	}
	if r.State != StateEstablished {
		t.Fatalf("expected ESTABLISHED, got %v", r.State)
	}

	auth := &stubAuth{ok: true, iface: wire.NewIfaceConfigPayload("teavpn2-srv", "10.8.8.2", "255.255.255.0", 1480)}
	authPayload := wire.NewAuthPayload("alice", "hunter2")
	buf := make([]byte, wire.AuthPayloadSize)
	authPayload.Encode(buf)
	res = r.HandleFrame(frameOf(uint8(wire.ClientAuth), buf), auth)
	if res.Response == nil || res.Response.Type != wire.ServerAuthOK {
		t.Fatalf("expected AUTH_OK, got %+v", res)
	}
	if r.State != StateAuthenticated {
		t.Fatalf("expected AUTHENTICATED, got %v", r.State)
	}

	payload := []byte{1, 2, 3, 4}
	res = r.HandleFrame(frameOf(uint8(wire.ClientIfaceData), payload), auth)
	if string(res.TUNPayload) != string(payload) {
		t.Fatalf("expected TUN forward, got %+v", res)
	}
}

func TestAuthRejection(t *testing.T) {
	r := NewRecord(0)
	r.Acquire(3, "")
	r.HandleFrame(frameOf(uint8(wire.ClientHello), nil), &stubAuth{})

	res := r.HandleFrame(frameOf(uint8(wire.ClientAuth), make([]byte, wire.AuthPayloadSize)), &stubAuth{ok: false})
	if res.Response == nil || res.Response.Type != wire.ServerAuthReject {
		t.Fatalf("expected AUTH_REJECT, got %+v", res)
	}
	if !res.Disconnect {
		t.Fatalf("expected disconnect on auth rejection")
	}
}

func TestOutOfOrderAuthWithoutHello(t *testing.T) {
	r := NewRecord(0)
	r.Acquire(3, "")
	res := r.HandleFrame(frameOf(uint8(wire.ClientAuth), make([]byte, wire.AuthPayloadSize)), &stubAuth{ok: true})
	if !res.Disconnect {
		t.Fatalf("expected disconnect for AUTH before HELLO")
	}
	if res.Response != nil {
		t.Fatalf("expected no response frame, got %+v", res.Response)
	}
}

func TestStateMonotonicity(t *testing.T) {
	r := NewRecord(0)
	r.Acquire(3, "")
	r.HandleFrame(frameOf(uint8(wire.ClientHello), nil), &stubAuth{})
	auth := &stubAuth{ok: true}
	buf := make([]byte, wire.AuthPayloadSize)
	r.HandleFrame(frameOf(uint8(wire.ClientAuth), buf), auth)
	if r.State != StateAuthenticated {
		t.Fatalf("setup failed: state=%v", r.State)
	}
	// Repeated HELLO/AUTH must never regress the state.
	r.HandleFrame(frameOf(uint8(wire.ClientHello), nil), auth)
	if r.State != StateAuthenticated {
		t.Fatalf("HELLO regressed state to %v", r.State)
	}
	r.HandleFrame(frameOf(uint8(wire.ClientAuth), buf), auth)
	if r.State != StateAuthenticated {
		t.Fatalf("repeated AUTH regressed state to %v", r.State)
	}
}

func TestErrorBudgetEnforcement(t *testing.T) {
	r := NewRecord(0)
	r.Acquire(3, "")
	r.HandleFrame(frameOf(uint8(wire.ClientHello), nil), &stubAuth{})
	// A short AUTH payload is a protocol error that charges the budget
	// without disconnecting until MaxErrCount is reached.
	short := frameOf(uint8(wire.ClientAuth), []byte("too short"))
	for i := 0; i < MaxErrCount-1; i++ {
		res := r.HandleFrame(short, &stubAuth{ok: true})
		if res.Disconnect {
			t.Fatalf("disconnected early at iteration %d", i)
		}
	}
	res := r.HandleFrame(short, &stubAuth{ok: true})
	if !res.Disconnect {
		t.Fatalf("expected disconnect once error budget exhausted")
	}
}
