package protocol

import (
	"bytes"
	"errors"
)

var (
	ErrBadFrame     = errors.New("protocol: malformed frame")
	ErrFrameTooLong = errors.New("protocol: payload exceeds frame size")
)

// Frame is a decoded frame. Seq is the 4-bit sequence number.
type Frame struct {
	Seq     uint8
	Payload []byte
}

// AppendFrame appends a frame carrying payload to dst.
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	if len(payload) > PayloadMax {
		return dst, ErrFrameTooLong
	}
	start := len(dst)
	dst = append(dst, byte(len(payload)+FrameMin), seq&SeqMask|FrameDest)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc>>8), byte(crc), FrameSync), nil
}

// ParseFrame validates a single complete frame. The returned payload
// aliases b.
func ParseFrame(b []byte) (Frame, error) {
	n := len(b)
	if n < FrameMin || n > FrameMax || int(b[0]) != n {
		return Frame{}, ErrBadFrame
	}
	if b[1]&^SeqMask != FrameDest || b[n-1] != FrameSync {
		return Frame{}, ErrBadFrame
	}
	want := uint16(b[n-3])<<8 | uint16(b[n-2])
	if CRC16(b[:n-FrameTrailerSize]) != want {
		return Frame{}, ErrBadFrame
	}
	return Frame{Seq: b[1] & SeqMask, Payload: b[FrameHeaderSize : n-FrameTrailerSize]}, nil
}

// FrameWriter numbers outgoing frames.
type FrameWriter struct {
	seq uint8
}

// Append appends the next frame in sequence to dst.
func (w *FrameWriter) Append(dst []byte, payload []byte) ([]byte, error) {
	out, err := AppendFrame(dst, w.seq, payload)
	if err != nil {
		return dst, err
	}
	w.seq = (w.seq + 1) & SeqMask
	return out, nil
}

// FrameReader splits a byte stream into frames. Input that does not parse
// is skipped up to the next sync byte.
type FrameReader struct {
	buf     []byte
	synced  bool
	dropped int
}

// NewFrameReader returns a reader expecting a frame boundary.
func NewFrameReader() *FrameReader {
	return &FrameReader{synced: true}
}

// Write buffers stream bytes. It never fails.
func (r *FrameReader) Write(p []byte) (int, error) {
	r.buf = append(r.buf, p...)
	return len(p), nil
}

// Next returns the next complete frame, or false when more input is
// needed. The payload is owned by the caller.
func (r *FrameReader) Next() (Frame, bool) {
	for len(r.buf) > 0 {
		if !r.synced {
			i := bytes.IndexByte(r.buf, FrameSync)
			if i < 0 {
				r.dropped += len(r.buf)
				r.buf = r.buf[:0]
				return Frame{}, false
			}
			r.dropped += i + 1
			r.consume(i + 1)
			r.synced = true
			continue
		}

		if r.buf[0] == FrameSync {
			r.consume(1)
			continue
		}
		n := int(r.buf[0])
		if n < FrameMin || n > FrameMax {
			r.synced = false
			continue
		}
		if len(r.buf) < n {
			return Frame{}, false
		}
		f, err := ParseFrame(r.buf[:n])
		if err != nil {
			r.synced = false
			continue
		}
		f.Payload = append([]byte(nil), f.Payload...)
		r.consume(n)
		return f, true
	}
	return Frame{}, false
}

// Dropped returns the number of bytes skipped while resynchronising.
func (r *FrameReader) Dropped() int {
	return r.dropped
}

func (r *FrameReader) consume(n int) {
	r.buf = append(r.buf[:0], r.buf[n:]...)
}
