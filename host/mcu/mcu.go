// Package mcu reads the bus trace stream of a running target.
package mcu

import (
	"context"
	"errors"
	"fmt"
	"io"

	"hatfw/core"
	"hatfw/host/serial"
	"hatfw/protocol"
)

// Monitor decodes trace frames from a target UART.
type Monitor struct {
	r      io.Reader
	closer io.Closer
	frames *protocol.FrameReader
	buf    [256]byte

	seq     uint8
	haveSeq bool
	missed  int
	bad     int
}

// NewMonitor returns a monitor reading frames from r.
func NewMonitor(r io.Reader) *Monitor {
	m := &Monitor{r: r, frames: protocol.NewFrameReader()}
	if c, ok := r.(io.Closer); ok {
		m.closer = c
	}
	return m
}

// Connect opens device with the trace UART settings.
func Connect(device string) (*Monitor, error) {
	return ConnectWithConfig(serial.DefaultConfig(device))
}

// ConnectWithConfig opens a serial port with a custom configuration.
// Input already buffered by the port is discarded.
func ConnectWithConfig(cfg *serial.Config) (*Monitor, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("flush %s: %w", cfg.Device, err)
	}
	return NewMonitor(port), nil
}

// Close closes the underlying port.
func (m *Monitor) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer.Close()
}

// Next returns the next bus event. It blocks until an event arrives, the
// stream ends (io.EOF) or ctx is done. Reads that time out without data
// are retried.
func (m *Monitor) Next(ctx context.Context) (core.BusEvent, error) {
	for {
		if f, ok := m.frames.Next(); ok {
			m.track(f.Seq)
			ev, err := core.DecodeBusEvent(f.Payload)
			if err != nil {
				m.bad++
				continue
			}
			return ev, nil
		}

		if err := ctx.Err(); err != nil {
			return core.BusEvent{}, err
		}
		n, err := m.r.Read(m.buf[:])
		m.frames.Write(m.buf[:n])
		if err != nil {
			if errors.Is(err, io.EOF) && n > 0 {
				continue
			}
			return core.BusEvent{}, err
		}
	}
}

func (m *Monitor) track(seq uint8) {
	if m.haveSeq {
		m.missed += int((seq - m.seq - 1) & protocol.SeqMask)
	}
	m.seq = seq
	m.haveSeq = true
}

// Stats reports frames missed by sequence gap, frames that did not decode
// as events and bytes skipped while resynchronising.
func (m *Monitor) Stats() (missed, bad, dropped int) {
	return m.missed, m.bad, m.frames.Dropped()
}
