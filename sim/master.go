package sim

import (
	"errors"
	"fmt"

	"tinygo.org/x/drivers"
)

var (
	ErrNoDevice     = errors.New("sim: no device acknowledged the address")
	ErrNACK         = errors.New("sim: data byte not acknowledged")
	ErrClockStretch = errors.New("sim: SCL held low by slave")
)

// Master is a bit-banged bus master. It implements drivers.I2C so that
// TinyGo device drivers can talk to the simulated firmware.
type Master struct {
	bus     *Bus
	started bool
}

var _ drivers.I2C = (*Master)(nil)

// NewMaster returns a master on bus.
func NewMaster(bus *Bus) *Master {
	return &Master{bus: bus}
}

// releaseSCL lets SCL rise and fails if the slave keeps it low.
func (m *Master) releaseSCL() error {
	m.bus.setSCL(true)
	if !m.bus.SCL() {
		return ErrClockStretch
	}
	return nil
}

// Start sends a start condition, or a repeated start inside a transaction.
func (m *Master) Start() error {
	if m.started {
		m.bus.setSDA(true)
		if err := m.releaseSCL(); err != nil {
			return err
		}
	}
	m.bus.setSDA(false)
	m.bus.setSCL(false)
	m.started = true
	return nil
}

// Stop sends a stop condition.
func (m *Master) Stop() error {
	m.started = false
	m.bus.setSDA(false)
	if err := m.releaseSCL(); err != nil {
		return err
	}
	m.bus.setSDA(true)
	return nil
}

// clockBit drives bit (true releases SDA) and returns the SDA level
// sampled while SCL is high.
func (m *Master) clockBit(bit bool) (bool, error) {
	m.bus.setSDA(bit)
	if err := m.releaseSCL(); err != nil {
		return false, err
	}
	seen := m.bus.SDA()
	m.bus.setSCL(false)
	return seen, nil
}

// SendByte writes b and reports whether the slave acknowledged it.
func (m *Master) SendByte(b byte) (bool, error) {
	for i := 7; i >= 0; i-- {
		if _, err := m.clockBit(b&(1<<uint(i)) != 0); err != nil {
			return false, err
		}
	}
	nack, err := m.clockBit(true)
	return !nack, err
}

// RecvByte reads a byte and answers with ACK or NACK.
func (m *Master) RecvByte(ack bool) (byte, error) {
	var b byte
	for i := 0; i < 8; i++ {
		bit, err := m.clockBit(true)
		if err != nil {
			return 0, err
		}
		b <<= 1
		if bit {
			b |= 1
		}
	}
	_, err := m.clockBit(!ack)
	return b, err
}

// Tx writes w and then reads into r, with a repeated start in between.
// An empty transaction probes the address.
func (m *Master) Tx(addr uint16, w, r []byte) error {
	if err := m.tx(uint8(addr), w, r); err != nil {
		if errors.Is(err, ErrClockStretch) {
			m.started = false
			return err
		}
		if serr := m.Stop(); serr != nil {
			return serr
		}
		return err
	}
	return m.Stop()
}

func (m *Master) tx(addr uint8, w, r []byte) error {
	if len(w) > 0 || len(r) == 0 {
		if err := m.address(addr, false); err != nil {
			return err
		}
		for i, b := range w {
			ack, err := m.SendByte(b)
			if err != nil {
				return err
			}
			if !ack {
				return fmt.Errorf("write byte %d to 0x%02X: %w", i, addr, ErrNACK)
			}
		}
	}

	if len(r) > 0 {
		if err := m.address(addr, true); err != nil {
			return err
		}
		for i := range r {
			b, err := m.RecvByte(i < len(r)-1)
			if err != nil {
				return err
			}
			r[i] = b
		}
	}
	return nil
}

func (m *Master) address(addr uint8, read bool) error {
	if err := m.Start(); err != nil {
		return err
	}
	b := addr << 1
	if read {
		b |= 1
	}
	ack, err := m.SendByte(b)
	if err != nil {
		return err
	}
	if !ack {
		return fmt.Errorf("address 0x%02X: %w", addr, ErrNoDevice)
	}
	return nil
}

// ReadRegister implements drivers.I2C.
func (m *Master) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return m.Tx(uint16(addr), []byte{reg}, buf)
}

// WriteRegister implements drivers.I2C.
func (m *Master) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, reg)
	w = append(w, buf...)
	return m.Tx(uint16(addr), w, nil)
}
