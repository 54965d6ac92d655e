package wire

import (
	"bytes"
	"testing"
)

func encodeFrame(typ uint8, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	Encode(buf, typ, payload)
	return buf
}

func TestDecoderRoundTrip(t *testing.T) {
	cases := []struct {
		typ     uint8
		payload []byte
	}{
		{uint8(ClientHello), nil},
		{uint8(ClientAuth), bytes.Repeat([]byte("x"), AuthPayloadSize)},
		{uint8(ClientIfaceData), bytes.Repeat([]byte{0xAB}, 1500)},
		{uint8(ClientIfaceData), bytes.Repeat([]byte{0xFF}, PayloadMax)},
	}
	for _, c := range cases {
		wire := encodeFrame(c.typ, c.payload)
		d := NewDecoder(make([]byte, HeaderSize+PayloadMax))
		n := copy(d.Free(), wire)
		d.Advance(n)
		frame, ok, err := d.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("expected a decoded frame")
		}
		if frame.ClientType() != ClientType(c.typ) {
			t.Errorf("type mismatch: got %d want %d", frame.ClientType(), c.typ)
		}
		if !bytes.Equal(frame.Payload(), c.payload) {
			t.Errorf("payload mismatch: got %d bytes want %d", len(frame.Payload()), len(c.payload))
		}
		if d.Fill() != 0 {
			t.Errorf("expected buffer fully consumed, got fill=%d", d.Fill())
		}
	}
}

func TestDecoderNeedsMore(t *testing.T) {
	d := NewDecoder(make([]byte, HeaderSize+PayloadMax))
	d.Advance(copy(d.Free(), []byte{uint8(ClientHello), 0, 0, 5}))
	_, ok, err := d.Next()
	if ok || err != nil {
		t.Fatalf("expected need-more, got ok=%v err=%v", ok, err)
	}
	d.Advance(copy(d.Free(), []byte("hello")))
	frame, ok, err := d.Next()
	if err != nil || !ok {
		t.Fatalf("expected complete frame after feeding payload: ok=%v err=%v", ok, err)
	}
	if string(frame.Payload()) != "hello" {
		t.Errorf("payload = %q", frame.Payload())
	}
}

// TestDecoderMultipleFramesPerRead covers the steady-state case of a
// single TCP read delivering two or more coalesced frames: each frame is
// decoded intact and in order. A frame is only valid until the next call
// to Next (which compacts the buffer), so each one is checked before the
// following Next call, exactly as the reactor consumes them.
func TestDecoderMultipleFramesPerRead(t *testing.T) {
	first := encodeFrame(uint8(ClientIfaceData), bytes.Repeat([]byte{0xAA}, 1200))
	second := encodeFrame(uint8(ClientIfaceData), bytes.Repeat([]byte{0xBB}, 800))
	wire := append(append([]byte(nil), first...), second...)

	d := NewDecoder(make([]byte, HeaderSize+PayloadMax))
	d.Advance(copy(d.Free(), wire))

	frame1, ok, err := d.Next()
	if err != nil || !ok {
		t.Fatalf("first frame: ok=%v err=%v", ok, err)
	}
	if frame1.ClientType() != ClientIfaceData || !bytes.Equal(frame1.Payload(), bytes.Repeat([]byte{0xAA}, 1200)) {
		t.Fatalf("frame1 corrupted: type=%d payload len=%d", frame1.ClientType(), len(frame1.Payload()))
	}
	frame2, ok, err := d.Next()
	if err != nil || !ok {
		t.Fatalf("second frame: ok=%v err=%v", ok, err)
	}
	if frame2.ClientType() != ClientIfaceData || !bytes.Equal(frame2.Payload(), bytes.Repeat([]byte{0xBB}, 800)) {
		t.Fatalf("frame2 corrupted: type=%d payload len=%d", frame2.ClientType(), len(frame2.Payload()))
	}
}

func TestDecoderByteAtATime(t *testing.T) {
	wire := append(encodeFrame(uint8(ClientHello), nil), encodeFrame(uint8(ClientAuth), []byte("ab"))...)
	d := NewDecoder(make([]byte, HeaderSize+PayloadMax))
	var got [][]byte
	for _, b := range wire {
		d.Advance(copy(d.Free(), []byte{b}))
		for {
			frame, ok, err := d.Next()
			if err != nil {
				t.Fatalf("unexpected corrupt: %v", err)
			}
			if !ok {
				break
			}
			got = append(got, append([]byte(nil), frame.Payload()...))
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(got))
	}
	if len(got[0]) != 0 || string(got[1]) != "ab" {
		t.Errorf("unexpected payloads: %q %q", got[0], got[1])
	}
}

func TestDecoderCorruptLength(t *testing.T) {
	d := NewDecoder(make([]byte, HeaderSize+PayloadMax))
	d.Advance(copy(d.Free(), []byte{uint8(ClientIfaceData), 0, 0xFF, 0xFF}))
	_, ok, err := d.Next()
	if err != ErrFrameCorrupt {
		t.Fatalf("expected ErrFrameCorrupt, got %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false on corrupt frame")
	}
	if d.Fill() != 0 {
		t.Errorf("expected buffer reset, got fill=%d", d.Fill())
	}
}

func TestIfaceConfigRoundTrip(t *testing.T) {
	p := NewIfaceConfigPayload("teavpn2-srv", "10.8.8.2", "255.255.255.0", 1480)
	buf := make([]byte, IfaceConfigSize)
	p.Encode(buf)
	got := DecodeIfaceConfig(buf)
	if got.DevString() != "teavpn2-srv" || got.IPv4String() != "10.8.8.2" || got.NetmaskString() != "255.255.255.0" || got.MTU != 1480 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}
