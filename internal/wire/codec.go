package wire

import (
	"encoding/binary"
	"errors"
)

// ErrFrameCorrupt is returned by Decoder.Next when a frame's declared
// length exceeds PayloadMax. The caller must discard the buffer; Next
// does not attempt to resynchronize on the byte stream.
var ErrFrameCorrupt = errors.New("wire: frame length exceeds maximum")

// Decoder incrementally decodes frames out of a caller-owned byte
// buffer. It never allocates: Next returns a Frame that aliases the
// buffer. Compaction of the tail behind a returned frame is deferred
// until the following Next() call, so the frame stays valid (and
// unclobbered) until then; that call overwrites its bytes.
type Decoder struct {
	buf     []byte // full capacity backing array, owned by the caller
	fill    int    // length of the valid prefix
	pending int    // bytes consumed by the last frame, not yet compacted
}

// NewDecoder wraps buf, which must be sized to hold at least one full
// frame (HeaderSize+PayloadMax).
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Fill returns the number of unconsumed bytes currently buffered (not
// counting a previously returned frame awaiting compaction).
func (d *Decoder) Fill() int { return d.fill - d.pending }

// Free returns the writable tail of the buffer following the valid prefix.
func (d *Decoder) Free() []byte { return d.buf[d.fill:] }

// Advance records that n additional bytes were written into Free().
func (d *Decoder) Advance(n int) { d.fill += n }

// Reset discards all buffered bytes.
func (d *Decoder) Reset() { d.fill = 0; d.pending = 0 }

// Next attempts to decode one frame from the buffered prefix.
//
//   - ok=false, err=nil: not enough bytes buffered yet.
//   - ok=true: a frame was decoded. The returned Frame aliases the
//     decoder's buffer and stays valid until the next call to Next,
//     which compacts the tail behind it before decoding further.
//   - err=ErrFrameCorrupt: the declared length exceeded PayloadMax; the
//     buffer has been reset to empty.
func (d *Decoder) Next() (frame Frame, ok bool, err error) {
	if d.pending > 0 {
		remaining := d.fill - d.pending
		if remaining > 0 {
			copy(d.buf[0:remaining], d.buf[d.pending:d.fill])
		}
		d.fill = remaining
		d.pending = 0
	}
	if d.fill < HeaderSize {
		return Frame{}, false, nil
	}
	length := binary.BigEndian.Uint16(d.buf[2:4])
	if length > PayloadMax {
		d.fill = 0
		return Frame{}, false, ErrFrameCorrupt
	}
	total := HeaderSize + int(length)
	if d.fill < total {
		return Frame{}, false, nil
	}
	frame = NewFrame(d.buf[:total])
	d.pending = total
	return frame, true, nil
}
