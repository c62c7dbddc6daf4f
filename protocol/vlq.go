package protocol

import "errors"

var (
	ErrInvalidVLQ  = errors.New("protocol: VLQ longer than 5 bytes")
	ErrShortBuffer = errors.New("protocol: truncated VLQ")
)

const vlqMaxLen = 5

// AppendVLQ appends the VLQ encoding of v to dst. Values in [-32, 96)
// take one byte; the encoding grows by 7 bits per byte up to 5 bytes.
func AppendVLQ(dst []byte, v int32) []byte {
	if v < -(1<<26) || v >= 3<<26 {
		dst = append(dst, byte(v>>28)&0x7F|0x80)
	}
	if v < -(1<<19) || v >= 3<<19 {
		dst = append(dst, byte(v>>21)&0x7F|0x80)
	}
	if v < -(1<<12) || v >= 3<<12 {
		dst = append(dst, byte(v>>14)&0x7F|0x80)
	}
	if v < -(1<<5) || v >= 3<<5 {
		dst = append(dst, byte(v>>7)&0x7F|0x80)
	}
	return append(dst, byte(v)&0x7F)
}

// AppendUVLQ appends the VLQ encoding of an unsigned value.
func AppendUVLQ(dst []byte, v uint32) []byte {
	return AppendVLQ(dst, int32(v))
}

// DecodeVLQ decodes one value and advances data past it.
func DecodeVLQ(data *[]byte) (int32, error) {
	b := *data
	if len(b) == 0 {
		return 0, ErrShortBuffer
	}

	c := uint32(b[0])
	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	n := 1
	for c&0x80 != 0 {
		if n == vlqMaxLen {
			return 0, ErrInvalidVLQ
		}
		if n == len(b) {
			return 0, ErrShortBuffer
		}
		c = uint32(b[n])
		v = v<<7 | c&0x7F
		n++
	}

	*data = b[n:]
	return int32(v), nil
}

// DecodeUVLQ decodes one unsigned value and advances data past it.
func DecodeUVLQ(data *[]byte) (uint32, error) {
	v, err := DecodeVLQ(data)
	return uint32(v), err
}
