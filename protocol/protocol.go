// Package protocol frames diagnostic messages on the serial link between
// the firmware and the host tools.
//
// A frame is
//
//	[len][seq|0x10][payload...][crc hi][crc lo][0x7E]
//
// len counts the whole frame. The CRC covers len, seq and the payload.
// Payload fields are VLQ encoded.
package protocol

const (
	FrameHeaderSize  = 2
	FrameTrailerSize = 3
	FrameMin         = FrameHeaderSize + FrameTrailerSize
	FrameMax         = 64
	PayloadMax       = FrameMax - FrameMin

	FrameSync = 0x7E
	FrameDest = 0x10
	SeqMask   = 0x0F
)
